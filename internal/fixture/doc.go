// Package fixture loads YAML entity fixtures and query documents.
//
// An entity fixture lists records per collection:
//
//	collections:
//	  users:
//	    - id: u1
//	      name: alice
//	      age: 30
//
// A query document mirrors query.Query. Where entries are either a
// three-element leaf [attribute, operator, value] or an exists block:
//
//	collection: users
//	where:
//	  - [age, ">=", $min]
//	  - exists:
//	      collection: posts
//	      where:
//	        - [author, "=", $parent.id]
//	select: [name, age]
//	order:
//	  - [age, desc]
//	vars:
//	  min: 20
//
// Decoding is strict: unknown fields are rejected, as are floats.
package fixture
