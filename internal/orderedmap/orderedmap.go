// Package orderedmap stellt eine Map mit stabiler Einfuegereihenfolge bereit.
// Duenne Huelle um wk8/go-ordered-map, damit Aufrufer nur Range statt der
// Pair-Verkettung sehen.
package orderedmap

import (
	om "github.com/wk8/go-ordered-map/v2"
)

// Map ist eine nach Einfuegereihenfolge geordnete Map.
type Map[K comparable, V any] struct {
	m *om.OrderedMap[K, V]
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: om.New[K, V]()}
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.m.Get(key)
}

// Set fuegt hinzu oder ueberschreibt; ein ueberschriebener Schluessel behaelt seine Position.
func (m *Map[K, V]) Set(key K, value V) {
	m.m.Set(key, value)
}

func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return m.m.Len()
}

// Range ruft fn in Einfuegereihenfolge auf, bis fn false liefert.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	if m == nil {
		return
	}
	for p := m.m.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Keys gibt die Schluessel in Einfuegereihenfolge zurueck.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}
