/*
Package group manages per-pool communication groups.

When a pool is opened with group creation requested, the pool cache forms a
communication group covering every node in the pool map; the group exists
for exactly as long as the pool object that owns it and is torn down first
when the pool's last reference drops. Group formation requires a parsed
pool map, so a pool with a live group always has one.

The Service interface is the seam to the cluster membership layer.
LocalService is the in-process implementation used by a single node: it
records group membership derived from the pool map and leaves message
delivery to the rpc transport. Multi-node consensus and membership
protocols are outside this subsystem.
*/
package group
