// Package models contains GORM persistence models and their mappings
// to domain entities. Keeping the ORM structs separate from the domain
// keeps persistence concerns (column types, indexes, JSON columns) out
// of the aggregates.
package models
