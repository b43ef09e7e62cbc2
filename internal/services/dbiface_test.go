package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// Service tests fake the store at the DBConn boundary and route on SQL text.

type fakeCommandTag struct {
	rowsAffected int64
}

func (f fakeCommandTag) RowsAffected() int64 {
	return f.rowsAffected
}

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.scanFunc == nil {
		return errors.New("fakeRow: no scan result")
	}
	return f.scanFunc(dest...)
}

// rowFromValues scans values into the destinations in order.
func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignRow(dest, values)
	}}
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (f *fakeRows) Close()     {}
func (f *fakeRows) Err() error { return f.err }

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.idx == 0 {
		return errors.New("fakeRows: Scan before Next")
	}
	return assignRow(dest, f.rows[f.idx-1])
}

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return fakeExec(f.ExecFunc, ctx, sql, args)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return fakeQuery(f.QueryFunc, ctx, sql, args)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return fakeQueryRow(f.QueryRowFunc, ctx, sql, args)
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc == nil {
		return nil, errors.New("fakeDB: transactions not configured")
	}
	return f.BeginFunc(ctx)
}

type fakeTx struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return fakeExec(f.ExecFunc, ctx, sql, args)
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return fakeQuery(f.QueryFunc, ctx, sql, args)
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return fakeQueryRow(f.QueryRowFunc, ctx, sql, args)
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.CommitFunc == nil {
		return nil
	}
	return f.CommitFunc(ctx)
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.RollbackFunc == nil {
		return nil
	}
	return f.RollbackFunc(ctx)
}

// Unset Exec and Query succeed with nothing; an unset QueryRow fails and
// names the statement so a missing case is easy to spot.
func fakeExec(fn func(context.Context, string, ...any) (CommandTag, error), ctx context.Context, sql string, args []any) (CommandTag, error) {
	if fn == nil {
		return fakeCommandTag{}, nil
	}
	return fn(ctx, sql, args...)
}

func fakeQuery(fn func(context.Context, string, ...any) (Rows, error), ctx context.Context, sql string, args []any) (Rows, error) {
	if fn == nil {
		return &fakeRows{}, nil
	}
	return fn(ctx, sql, args...)
}

func fakeQueryRow(fn func(context.Context, string, ...any) Row, ctx context.Context, sql string, args []any) Row {
	if fn == nil {
		return fakeRow{scanFunc: func(dest ...any) error {
			return fmt.Errorf("unexpected QueryRow: %s", sql)
		}}
	}
	return fn(ctx, sql, args...)
}

// assignRow copies values into scan destinations, converting where the
// types allow it. A nil value zeroes the destination.
func assignRow(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan into %d destinations, row has %d values", len(dest), len(values))
	}
	for i, value := range values {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if value == nil {
			elem.SetZero()
			continue
		}
		v := reflect.ValueOf(value)
		switch {
		case v.Type().AssignableTo(elem.Type()):
			elem.Set(v)
		case v.Type().ConvertibleTo(elem.Type()):
			elem.Set(v.Convert(elem.Type()))
		default:
			return fmt.Errorf("destination %d: cannot assign %T to %s", i, value, elem.Type())
		}
	}
	return nil
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	var committed, rolledBack bool
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) {
		return &fakeTx{
			CommitFunc:   func(ctx context.Context) error { committed = true; return nil },
			RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
		}, nil
	}}

	if err := withTx(context.Background(), db, func(tx Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !committed || rolledBack {
		t.Fatalf("expected commit only, committed=%v rolledBack=%v", committed, rolledBack)
	}
}

func TestWithTx_RollsBackAndKeepsSentinel(t *testing.T) {
	var committed, rolledBack bool
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) {
		return &fakeTx{
			CommitFunc:   func(ctx context.Context) error { committed = true; return nil },
			RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
		}, nil
	}}

	err := withTx(context.Background(), db, func(tx Tx) error { return ErrAlreadyFriends })
	if err != ErrAlreadyFriends {
		t.Fatalf("expected the sentinel itself, got %v", err)
	}
	if committed || !rolledBack {
		t.Fatalf("expected rollback only, committed=%v rolledBack=%v", committed, rolledBack)
	}
}

func TestWithTx_BeginAndCommitFailures(t *testing.T) {
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return nil, errors.New("pool closed") }}
	if err := withTx(context.Background(), db, func(tx Tx) error { return nil }); err == nil || err.Error() != "begin transaction: pool closed" {
		t.Fatalf("unexpected begin error: %v", err)
	}

	var rolledBack bool
	db = &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) {
		return &fakeTx{
			CommitFunc:   func(ctx context.Context) error { return errors.New("serialization failure") },
			RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
		}, nil
	}}
	if err := withTx(context.Background(), db, func(tx Tx) error { return nil }); err == nil || err.Error() != "commit transaction: serialization failure" {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if !rolledBack {
		t.Fatal("expected rollback after a failed commit")
	}
}

func TestAssignRow(t *testing.T) {
	var (
		name  string
		count int
		note  *string
	)
	existing := "old"
	note = &existing
	if err := assignRow([]any{&name, &count, &note}, []any{"Bread Maker", int64(3), nil}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Bread Maker" || count != 3 || note != nil {
		t.Fatalf("unexpected values %q %d %v", name, count, note)
	}
	if err := assignRow([]any{&count}, []any{"three"}); err == nil {
		t.Fatal("expected type mismatch error")
	}
	if err := assignRow([]any{count}, []any{1}); err == nil {
		t.Fatal("expected non-pointer error")
	}
}
