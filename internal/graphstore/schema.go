package graphstore

import "context"

// TemporalSchema is the Dgraph type/predicate schema backing the temporal
// knowledge graph and DSA community layers (spec §6.1, translated from the
// Neo4j wire schema to Dgraph's type-and-predicate model). Every entity node
// has dgraph.type Entity and every relationship node TemporalRelationship;
// sanitized entity labels and relationship types are stored in entity.type
// and rel.predicate. The atom_* properties attached to every relationship carry the append-only
// observation/provenance data described in spec §3.1.
const TemporalSchema = `
	type Entity {
		entity.id: string
		entity.name: string
		entity.type: string
		entity.properties: string
		entity.created: datetime
		entity.updated: datetime
	}

	type TemporalRelationship {
		rel.id: string
		rel.predicate: string
		atom_t_obs: [datetime]
		atom_t_start: [datetime]
		atom_t_end: [datetime]
		atom_atomic_facts: [string]
		atom_confidence: float
		atom_embeddings: [float]
		from: uid
		to: uid
	}

	type Community {
		community.id: string
		community.level: int
		community.full_content: string
		community.summary: string
		community.updated_at: datetime
		community.member_ids: [string]
	}

	type CommunityDelta {
		delta.id: string
		delta.community_id: string
		delta.summary: string
		delta.status: string
		delta.created_at: datetime
		delta.token_count: int
	}

	entity.id: string @index(exact) @upsert .
	entity.name: string @index(fulltext, trigram) @index(exact) .
	entity.type: string @index(exact) .
	entity.properties: string .
	entity.created: datetime @index(hour) .
	entity.updated: datetime .

	rel.id: string @index(exact) .
	rel.predicate: string @index(exact) .
	atom_t_obs: [datetime] .
	atom_t_start: [datetime] @index(hour) .
	atom_t_end: [datetime] @index(hour) .
	atom_atomic_facts: [string] .
	atom_confidence: float .
	atom_embeddings: [float] .

	from: uid @reverse .
	to: uid @reverse .

	community.id: string @index(exact) @upsert .
	community.level: int @index(int) .
	community.full_content: string .
	community.summary: string .
	community.updated_at: datetime @index(hour) .
	community.member_ids: [string] @index(exact) .

	delta.id: string @index(exact) @upsert .
	delta.community_id: string @index(exact) .
	delta.summary: string .
	delta.status: string @index(exact) .
	delta.created_at: datetime @index(hour) .
	delta.token_count: int .
`

// EnsureSchema applies TemporalSchema, treating an already-applied clash as
// success (spec §7, "Schema-migration clash" policy).
func EnsureSchema(ctx context.Context, s Store) error {
	if err := s.Alter(ctx, TemporalSchema); err != nil && !IsAlreadyExistsErr(err) {
		return err
	}
	return nil
}
