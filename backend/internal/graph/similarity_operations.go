package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// ============================================================================
// Vector Similarity Operations
// ============================================================================

// overFetchFactor controls how many index candidates are pulled before the
// ownership post-filter. The vector index is global across owners, so the
// search must over-fetch and filter rather than query a per-owner partition.
const overFetchFactor = 4

// minOverFetch keeps small-k searches from starving behind other owners'
// tasks at the top of the index.
const minOverFetch = 20

// SimilarTasks returns up to k of the owner's tasks most similar to the
// query vector, ordered by descending cosine similarity.
//
// Because the index is shared by all owners, candidates are over-fetched
// (max(4*k, 20)) and post-filtered by the OWNS edge. If fewer than k owned
// tasks appear among those candidates the result may be short of k even when
// more owned matches exist deeper in the index; callers needing exhaustive
// recall must request a larger k and refilter.
func (s *Store) SimilarTasks(ctx context.Context, userID string, vector []float64, k int) ([]SimilarTask, error) {
	if len(vector) != EmbeddingDim {
		return nil, pkgerrors.NewUpstreamStoreError("similarity search",
			fmt.Errorf("expected %d-dim vector, got %d", EmbeddingDim, len(vector)))
	}
	if k < 1 {
		k = 5
	}

	fetch := k * overFetchFactor
	if fetch < minOverFetch {
		fetch = minOverFetch
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		CALL vector_search.search('task_embedding_idx', $fetch, $vector)
		YIELD node, similarity
		WITH node, similarity
		MATCH (u:User {id: $userID})-[:OWNS]->(node)
		RETURN node, similarity
		ORDER BY similarity DESC
		LIMIT $k
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"fetch":  fetch,
		"vector": vector,
		"userID": userID,
		"k":      k,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("similarity search", err)
	}

	var matches []SimilarTask
	for result.Next(ctx) {
		record := result.Record()
		node, ok := nodeFromRecord(record, "node")
		if !ok {
			continue
		}
		matches = append(matches, SimilarTask{
			Task:  taskFromNode(node),
			Score: getFloat64FromRecord(record, "similarity"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("similarity search", err)
	}
	return matches, nil
}
