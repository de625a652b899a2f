// Package schema types the entities collected by notions.
//
// A classifier reports every entity as text (the "raw" field) or with a
// normalized "scalar". A Type coerces that value into a Go value and
// refuses what does not fit, so that catalogs can declare
//
//	notions:
//	  - entities:
//	      - {entity: number, alias: guests, type: int, invalid: "How many people?"}
//
// and get an integer under guests.value without writing a validator.
//
// Built-in types are "string", "int", "float" and "bool". A list type is
// written "[int]" and accepts a comma separated value.
package schema
