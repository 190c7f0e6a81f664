package item

import (
	"strconv"
)

// Item is the domain record. ID is assigned by the store and never changes.
type Item struct {
	ID    int64  `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// Key is the cache key for an item id.
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Source names the tier that satisfied a read.
type Source string

const (
	SourceMemory Source = "memory"
	SourceShared Source = "shared"
	SourceStore  Source = "store"
)

// Result is the outcome of a successful read.
type Result struct {
	Source Source `json:"source"`
	Item   Item   `json:"item"`
}

// ValidateCreate checks the fields a caller supplies on create.
func ValidateCreate(name string) error {
	if name == "" {
		return validationError("name is required")
	}
	return nil
}
