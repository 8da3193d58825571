package storage

// Selector routes a scope to its store. Both stores live for the whole session.
type Selector struct {
	Global  Store
	Project Store
}

func (s Selector) For(scope Scope) Store {
	if scope == ScopeProject {
		return s.Project
	}
	return s.Global
}
