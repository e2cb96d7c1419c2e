// Package schemafile loads db schemas from YAML descriptions.
//
// A description lists tables and their columns:
//
//	name: company
//	tables:
//	  - name: department
//	    columns:
//	      - {name: id, type: int32, keys: [primary]}
//	      - {name: title, type: string}
//	  - name: person
//	    columns:
//	      - {name: id, type: int32, keys: [primary]}
//	      - {name: department_id, type: int32, nullable: true, reference: department}
//
// Types accept the db kind names and common SQL aliases (varchar, bigint,
// timestamp, ...). References are resolved by table name through the schema.
package schemafile
