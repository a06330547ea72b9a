// Package policy loads access policy documents.
//
// An access policy document declares the users, groups and scoped
// memberships that the access context builder reads. Documents are YAML:
//
//	users:
//	  - id: alice
//	    name: Alice Example
//	  - id: root
//	    name: Root
//	    role: global_admin
//	groups:
//	  - id: db-editors
//	    name: Database editors
//	    actions: [EDIT]
//	memberships:
//	  - user: alice
//	    group: db-editors
//	    categories: [database]
//	    environments: [production, staging]
//
// An omitted categories or environments list matches every value, as does
// an explicit "*".
//
// Loading is all or nothing. Listed users and groups are upserted and the
// memberships of every listed user are replaced by the ones in the
// document. Users, groups and memberships the document does not mention are
// left alone.
package policy
