package models

// JSONMap stores free-form string-keyed payloads (entity context, review
// criteria, notification data) as jsonb. Shape is validated at the edge;
// internally the representation stays dynamic.
type JSONMap map[string]any

// RatingMap maps a criterion key (from the category's question set) to a
// rating in [1,5].
type RatingMap map[string]float64

// StringList is a bounded list persisted as jsonb (pros, cons, images).
// jsonb rather than text[] keeps the type portable across the postgres
// production store and the sqlite test store.
type StringList []string
