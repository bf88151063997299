package sql

import (
	"testing"

	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

func benchTable(b *testing.B) (*schema.Table, []*schema.Column) {
	b.Helper()
	t := schema.NewTable("users")
	id := t.MustAddColumn(&schema.Column{Name: "id", Type: field.TypeInt64, Increment: true})
	cols := []*schema.Column{
		t.MustAddColumn(&schema.Column{Name: "age", Type: field.TypeInt}),
		t.MustAddColumn(&schema.Column{Name: "first_name", Type: field.TypeString}),
		t.MustAddColumn(&schema.Column{Name: "last_name", Type: field.TypeString}),
		t.MustAddColumn(&schema.Column{Name: "nickname", Type: field.TypeString}),
		t.MustAddColumn(&schema.Column{Name: "created_at", Type: field.TypeTime}),
	}
	if err := t.SetPrimaryKey(id); err != nil {
		b.Fatal(err)
	}
	return t, cols
}

func BenchmarkDML_Insert(b *testing.B) {
	t, cols := benchTable(b)
	for name, ph := range map[string]Placeholder{"QuestionMark": QuestionMark, "Dollar": Dollar} {
		g := NewDMLGenerator(NewQuoter('"', "order", "user"), ph)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := g.Insert(t, cols); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDML_BulkInsert(b *testing.B) {
	t, cols := benchTable(b)
	g := NewDMLGenerator(NewQuoter('`'), QuestionMark)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := g.BulkInsert(t, cols, 100); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDML_Update(b *testing.B) {
	t, cols := benchTable(b)
	g := NewDMLGenerator(NewQuoter('"'), Dollar)
	id, _ := t.Column("id")
	where := []*schema.Column{id}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := g.Update(t, cols, where); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExpandNamed(b *testing.B) {
	query := "select * from users where id in (:ids) and status = :status and name like '%:not_a_param%'"
	params := map[string]any{
		"ids":    []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"status": "active",
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := ExpandNamed(query, params, Dollar); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBinderRegistry(b *testing.B) {
	_, cols := benchTable(b)
	reg := NewBinderRegistry(DefaultBinders())
	args := NewArgs(len(cols))
	values := []any{30, "Ariel", "Mashraki", "a8m", nil}
	b.ReportAllocs()
	for b.Loop() {
		for i, c := range cols {
			bd, err := reg.Binder(c)
			if err != nil {
				b.Fatal(err)
			}
			if err := bd.Write(args, i+1, values[i]); err != nil {
				b.Fatal(err)
			}
		}
	}
}
