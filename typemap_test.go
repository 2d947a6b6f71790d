package wire

import "testing"

func int4p(v int32) *int32 { return &v }
func strp(v string) *string { return &v }

func TestWriteRecordBatch(t *testing.T) {
	schema := []FieldDescription{
		{Name: "id", Type: Int4},
		{Name: "name", Type: Text},
	}

	batch := RecordBatch{
		Schema: schema,
		Columns: []Column{
			Int4Column{int4p(1), int4p(2)},
			TextColumn{strp("alice"), nil},
		},
	}

	dst := NewDataRowBatch(schema, AllText())
	if err := WriteRecordBatch(dst, batch); err != nil {
		t.Fatal(err)
	}

	if dst.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", dst.Len())
	}
}

func TestWriteRecordBatchSchemaMismatch(t *testing.T) {
	schema := []FieldDescription{{Name: "id", Type: Int4}}
	batch := RecordBatch{
		Schema:  schema,
		Columns: []Column{Int4Column{int4p(1)}, TextColumn{strp("x")}},
	}

	dst := NewDataRowBatch(schema, AllText())
	if err := WriteRecordBatch(dst, batch); err == nil {
		t.Fatal("expected an error for mismatched schema/column count")
	}
}

func TestWriteRecordBatchOidMismatch(t *testing.T) {
	schema := []FieldDescription{{Name: "id", Type: Int4}}
	batch := RecordBatch{
		Schema:  schema,
		Columns: []Column{TextColumn{strp("not an int")}},
	}

	dst := NewDataRowBatch(schema, AllText())
	if err := WriteRecordBatch(dst, batch); err == nil {
		t.Fatal("expected an error for a column OID that disagrees with the schema")
	}
}
