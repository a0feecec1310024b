package scheduler

import "sync"

// GLObjectManager maps document-side client ids to real GL names, one
// namespace per ObjectKind. It is only ever touched by the render thread
// (§5 "the GL object manager and virtual GL-state records are only touched
// by the render thread"); the mutex here guards against that invariant
// being violated by a future caller, not concurrent replay.
type GLObjectManager struct {
	mu    sync.Mutex
	names [numObjectKinds]map[int]int
}

// NewGLObjectManager returns an empty manager, local to one document —
// this is what gives two documents independent GL-name spaces for the same
// client id (the document-isolation invariant).
func NewGLObjectManager() *GLObjectManager {
	m := &GLObjectManager{}
	for i := range m.names {
		m.names[i] = make(map[int]int)
	}
	return m
}

// Create records that clientID now maps to realName under kind.
func (m *GLObjectManager) Create(kind ObjectKind, clientID, realName int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[kind][clientID] = realName
}

// RealName looks up the real GL name for clientID under kind.
func (m *GLObjectManager) RealName(kind ObjectKind, clientID int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[kind][clientID]
	return name, ok
}

// Delete removes clientID's mapping under kind and returns the real name
// that was deleted, if any.
func (m *GLObjectManager) Delete(kind ObjectKind, clientID int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[kind][clientID]
	if ok {
		delete(m.names[kind], clientID)
	}
	return name, ok
}
