// Package jurisgraph provides evidence retrieval over a legal knowledge
// graph.
//
// JurisGraph answers legal research questions by combining three retrieval
// strategies over a bi-temporal graph of instruments, provisions and
// judgments: a local agent (vector search plus one-hop expansion), a global
// agent (community centroids), and a drift agent (community-anchored bounded
// traversal). Their ranked lists are merged with reciprocal rank fusion and
// a language model composes a grounded, cited answer streamed token by
// token.
//
// # Basic Usage
//
// Create a client from configuration and ask a question:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := jurisgraph.NewClient(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	events := client.Ask(ctx, types.Request{
//		Query:    "What governs liability for defective products?",
//		Strategy: types.StrategyHybrid,
//	})
//	for event := range events {
//		switch event.Kind {
//		case types.TokenEvent:
//			fmt.Print(event.Token)
//		case types.CompleteEvent:
//			fmt.Printf("\n%d citations\n", len(event.Result.Citations))
//		case types.ErrorEvent:
//			log.Fatal(event.Error.Message)
//		}
//	}
//
// # Time Travel
//
// Requests may carry an as-of date. Traversal then follows only edges whose
// validity window covers that date, so the same question asked about 2015
// and 2020 can return different evidence when the law changed in between.
//
// # Entity Kinds
//
// The graph stores six kinds of entities:
//
//   - instrument: a legal text (constitution, code, act)
//   - provision: an article or clause of an instrument
//   - judgment: a court decision interpreting provisions
//   - court, gazette: reference entities for provenance
//   - community: a derived topic cluster over the citation graph
//
// # Architecture
//
//   - pkg/graph: graph store abstraction (Neo4j and fixture backends)
//   - pkg/retrieval: the three agents and reciprocal rank fusion
//   - pkg/orchestrator: the per-request state machine and event stream
//   - pkg/compose: answer composition over fused evidence
//   - pkg/community: offline community layer rebuilds
//   - pkg/types: core type definitions
package jurisgraph
