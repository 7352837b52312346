/*
Package ohm maps Go structs onto hashes in a Redis-shaped key-value store
and keeps secondary indices, unique constraints and relation containers
consistent with them.

We implement:

1. Records, structs implementing Model, flattened into a hash of text
attributes by a per-type Fields declaration (no reflection).

2. Unique fields, enforced store-wide among live records of a type.

3. Indexed fields, each value keeping the set of ids that hold it.

4. Relations: references by id, ordered lists, unordered sets, derived
collections and atomic counters.

5. Queries, boolean expressions over index sets evaluated in one round trip,
optionally sorted on the store side.

# Technical Details

**Keys.**
Key names follow the Ohm scheme so that other implementations can share a
database:

	{Type}:{id}                   record hash
	{Type}:all                    ids of live records
	{Type}:id                     id allocator
	{Type}:uniques:{field}        unique value -> id
	{Type}:indices:{field}:{val}  ids holding val
	{Type}:{field}:{id}           list or set
	{Type}:{id}:{field}           counter
	{Type}:{id}:_indices          index keys the record occupies
	{Type}:{id}:_uniques          unique values the record owns

**Save and delete** never read-modify-write on the client. The work is
described by msgpack payloads (see SaveArgs, DeleteArgs) and applied by the
store as one atomic unit: a Lua script in redisstore, a write transaction in
kvstore. Uniqueness is verified before anything is written.

**Queries** are compiled by a Solver (setalg by default) into a
MULTI ... EXEC program with temporary keys. The MULTI/EXEC markers are
stripped and the remaining commands go to Store.Exec as one batch.

**Iteration** loads records lazily. A record deleted after the query ran
ends the iteration; Iter.Err reports it.
*/
package ohm
