package memhost

import (
	"fmt"
	"strings"

	"github.com/speakeasy-api/treefold"
)

type undo struct {
	obj  *Object
	key  string
	prev treefold.Value
	had  bool
}

type transaction struct {
	h         *Host
	log       []undo
	done      bool
	discarded bool
}

// write is one captured property write.
type write struct {
	obj     *Object
	key     string
	value   treefold.Value
	present bool
}

// Effects is the outcome of a committed transaction: its result and the
// final value of every property it wrote.
type Effects struct {
	result treefold.Value
	writes []write
}

func (e *Effects) Result() treefold.Value { return e.result }

// Begin opens a transaction and replays applied inside it.
func (h *Host) Begin(applied ...treefold.Effects) treefold.Transaction {
	tx := &transaction{h: h}
	h.txs = append(h.txs, tx)
	for _, e := range applied {
		if eff, ok := e.(*Effects); ok && eff != nil {
			h.apply(eff)
		}
	}
	return tx
}

func (h *Host) apply(e *Effects) {
	for _, w := range e.writes {
		if w.present {
			h.write(w.obj, w.key, w.value)
			continue
		}
		if tx := h.currentTx(); tx != nil {
			prev, had := w.obj.get(w.key)
			tx.log = append(tx.log, undo{obj: w.obj, key: w.key, prev: prev, had: had})
		}
		w.obj.remove(w.key)
	}
}

func (tx *transaction) pop() {
	h := tx.h
	if top := h.currentTx(); top != tx {
		panic("memhost: transactions closed out of order")
	}
	h.txs = h.txs[:len(h.txs)-1]
	tx.done = true
}

func (tx *transaction) rollback() {
	for i := len(tx.log) - 1; i >= 0; i-- {
		u := tx.log[i]
		if u.had {
			u.obj.props.Set(u.key, u.prev)
		} else {
			u.obj.remove(u.key)
		}
	}
}

// Commit captures the writes made since Begin and rolls them back. A net
// change to a global object fails the commit with UnsupportedSideEffect.
func (tx *transaction) Commit(result treefold.Value) (treefold.Effects, error) {
	if tx.done {
		return nil, treefold.Invariantf("transaction already closed")
	}
	type slot struct {
		obj *Object
		key string
	}
	var (
		order   []slot
		initial = make(map[slot]undo)
	)
	for _, u := range tx.log {
		s := slot{u.obj, u.key}
		if _, ok := initial[s]; !ok {
			initial[s] = u
			order = append(order, s)
		}
	}

	effects := &Effects{result: result}
	var escaped []string
	for _, s := range order {
		v, present := s.obj.get(s.key)
		effects.writes = append(effects.writes, write{obj: s.obj, key: s.key, value: v, present: present})
		first := initial[s]
		if s.obj.global && (present != first.had || (present && !tx.h.Same(v, first.prev))) {
			escaped = append(escaped, tx.h.Name(s.obj)+"."+s.key)
		}
	}
	tx.rollback()
	tx.pop()
	if len(escaped) > 0 {
		return nil, &treefold.UnsupportedSideEffect{Message: fmt.Sprintf("mutation of %s", strings.Join(escaped, ", "))}
	}
	return effects, nil
}

func (tx *transaction) Discard() {
	if tx.done {
		return
	}
	tx.rollback()
	tx.pop()
	tx.discarded = true
}

// Join applies both effects under cond in the open transaction, if any, and
// returns the joined result.
func (h *Host) Join(cond treefold.Value, consequent, alternate treefold.Effects) (treefold.Value, error) {
	a, ok := consequent.(*Effects)
	if !ok || a == nil {
		return nil, treefold.Invariantf("join of foreign effects %T", consequent)
	}
	b, ok := alternate.(*Effects)
	if !ok || b == nil {
		return nil, treefold.Invariantf("join of foreign effects %T", alternate)
	}

	type slot struct {
		obj *Object
		key string
	}
	var order []slot
	byA := make(map[slot]write)
	byB := make(map[slot]write)
	for _, w := range a.writes {
		s := slot{w.obj, w.key}
		byA[s] = w
		order = append(order, s)
	}
	for _, w := range b.writes {
		s := slot{w.obj, w.key}
		if _, ok := byA[s]; !ok {
			order = append(order, s)
		}
		byB[s] = w
	}
	current := func(s slot, m map[slot]write) treefold.Value {
		if w, ok := m[s]; ok {
			if !w.present {
				return undefinedValue{}
			}
			return w.value
		}
		v, ok := s.obj.get(s.key)
		if !ok {
			return undefinedValue{}
		}
		return v
	}
	for _, s := range order {
		x, y := current(s, byA), current(s, byB)
		if h.Same(x, y) {
			h.write(s.obj, s.key, x)
			continue
		}
		h.write(s.obj, s.key, h.NewConditional(cond, x, y))
	}

	if h.Same(a.result, b.result) {
		return a.result, nil
	}
	return h.NewConditional(cond, a.result, b.result), nil
}
