// Package harvest declares the core domain types and collaborator
// interfaces shared by the ingestion pipeline. It has no dependencies by
// design so every other package can import it freely.
package harvest
