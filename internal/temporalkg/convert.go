package temporalkg

// ToWriteBatch builds a WriteBatch from g (spec §4.2 to_graph_documents):
// every entity becomes a node, de-duplicated by ID; any relationship whose
// source or target ID has no corresponding entity gets an auto-created stub
// node (name = id, type = "entity") so the writer never has to special-case
// a dangling edge.
func (g TemporalKnowledgeGraph) ToWriteBatch(sourceText string) WriteBatch {
	byID := make(map[string]TemporalEntity, len(g.Entities))
	order := make([]string, 0, len(g.Entities))
	for _, e := range g.Entities {
		if _, exists := byID[e.ID]; !exists {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}

	ensureStub := func(id string) {
		if _, exists := byID[id]; exists {
			return
		}
		byID[id] = TemporalEntity{ID: id, Name: id, Type: "entity"}
		order = append(order, id)
	}
	for _, r := range g.Relationships {
		ensureStub(r.SourceID)
		ensureStub(r.TargetID)
	}

	entities := make([]TemporalEntity, 0, len(order))
	for _, id := range order {
		entities = append(entities, byID[id])
	}

	return WriteBatch{
		Graph: TemporalKnowledgeGraph{
			Entities:      entities,
			Relationships: g.Relationships,
		},
		SourceText: sourceText,
	}
}

// IsEmpty reports whether g has no entities and no relationships
// (spec §4.2 is_empty()).
func (g TemporalKnowledgeGraph) IsEmpty() bool {
	return len(g.Entities) == 0 && len(g.Relationships) == 0
}
