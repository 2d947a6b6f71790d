package wire

import "sync"

// preparedStatement is what Parse stores: the parsed AST and the result
// schema Prepare derived from it.
type preparedStatement struct {
	stmt   Statement
	fields []FieldDescription
}

// boundPortal is what Bind stores: a row-producing handle together with the
// result format chosen at bind time.
type boundPortal struct {
	portal Portal
	stmt   Statement
	fields []FieldDescription
	format BindFormat
}

// StatementCache holds a connection's named prepared statements. The empty
// name is the anonymous statement. Set silently replaces any existing entry
// of the same name, matching Parse's semantics.
type StatementCache struct {
	mu    sync.RWMutex
	table map[string]*preparedStatement
}

func newStatementCache() *StatementCache {
	return &StatementCache{table: make(map[string]*preparedStatement)}
}

func (c *StatementCache) Set(name string, stmt Statement, fields []FieldDescription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table[name] = &preparedStatement{stmt: stmt, fields: fields}
}

func (c *StatementCache) Get(name string) (*preparedStatement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.table[name]
	return v, ok
}

func (c *StatementCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = make(map[string]*preparedStatement)
}

// PortalCache holds a connection's named portals. The empty name is the
// anonymous portal. Bind silently replaces any existing entry of the same
// name, matching Bind's semantics.
type PortalCache struct {
	mu    sync.RWMutex
	table map[string]*boundPortal
}

func newPortalCache() *PortalCache {
	return &PortalCache{table: make(map[string]*boundPortal)}
}

func (c *PortalCache) Bind(name string, portal Portal, stmt Statement, fields []FieldDescription, format BindFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table[name] = &boundPortal{portal: portal, stmt: stmt, fields: fields, format: format}
}

func (c *PortalCache) Get(name string) (*boundPortal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.table[name]
	return v, ok
}

func (c *PortalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = make(map[string]*boundPortal)
}
