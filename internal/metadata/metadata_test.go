package metadata

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSeedDataTypes(t *testing.T) {
	types := SeedDataTypes()
	if len(types) != 6 {
		t.Fatalf("expected 6 seeded datatypes, got %d", len(types))
	}

	byName := make(map[string]DataType, len(types))
	for _, dt := range types {
		if dt.FormatVersion != FormatVersion {
			t.Errorf("%s: expected format_version %d, got %d", dt.Name, FormatVersion, dt.FormatVersion)
		}
		if dt.Generation != InitialGeneration {
			t.Errorf("%s: expected generation %d, got %d", dt.Name, InitialGeneration, dt.Generation)
		}
		byName[dt.Name] = dt
	}

	int32t, ok := byName["INT32"]
	if !ok {
		t.Fatal("INT32 missing from seeded datatypes")
	}
	if int32t.ID != DataTypeINT32 {
		t.Errorf("expected INT32 id %d, got %d", DataTypeINT32, int32t.ID)
	}
	if int32t.PgDataType != 23 {
		t.Errorf("expected INT32 pg_data_type 23, got %d", int32t.PgDataType)
	}

	varchar, ok := byName["VARCHAR"]
	if !ok {
		t.Fatal("VARCHAR missing from seeded datatypes")
	}
	if varchar.PgDataTypeQualifiedName != "varchar" {
		t.Errorf("expected VARCHAR qualified name varchar, got %s", varchar.PgDataTypeQualifiedName)
	}

	// Seeds must come back in id order for deterministic select_all.
	for i := 1; i < len(types); i++ {
		if types[i-1].ID >= types[i].ID {
			t.Errorf("seeded datatypes out of id order at %d: %d >= %d", i, types[i-1].ID, types[i].ID)
		}
	}
}

func TestNotFoundByKey(t *testing.T) {
	tests := []struct {
		key  Key
		want error
	}{
		{KeyID, ErrIDNotFound},
		{KeyName, ErrNameNotFound},
		{KeyTableID, ErrNotFound},
		{KeyPgDataType, ErrNotFound},
	}
	for _, tt := range tests {
		got := NotFoundByKey(tt.key)
		if !errors.Is(got, tt.want) {
			t.Errorf("NotFoundByKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{
		ErrNotFound, ErrIDNotFound, ErrNameNotFound, ErrAlreadyExists,
		ErrTableNameAlreadyExists, ErrInvalidParameter, ErrNotSupported,
		ErrInternal, ErrEndOfRow,
	}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j && errors.Is(a, b) {
				t.Errorf("error kinds %v and %v are not distinct", a, b)
			}
		}
	}
}

func TestTableJSONRoundTrip(t *testing.T) {
	table := Table{
		Object:      Object{FormatVersion: 1, Generation: 1, ID: 2001, Name: "orders"},
		Namespace:   "public",
		PrimaryKeys: []int64{1},
		Tuples:      1500,
		Columns: []Column{
			{
				Object:          Object{FormatVersion: 1, Generation: 1, ID: 3001, Name: "id"},
				TableID:         2001,
				OrdinalPosition: 1,
				DataTypeID:      DataTypeINT64,
				Nullable:        Bool(false),
			},
		},
	}

	data, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Table
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Name != "orders" || got.ID != 2001 {
		t.Errorf("header did not survive round trip: %+v", got.Object)
	}
	if len(got.Columns) != 1 {
		t.Fatalf("expected 1 column, got %d", len(got.Columns))
	}
	if got.Columns[0].Nullable == nil || *got.Columns[0].Nullable {
		t.Error("expected nullable=false to survive round trip")
	}
	if got.Tuples != 1500 {
		t.Errorf("expected reltuples 1500, got %v", got.Tuples)
	}
}

func TestColumnNullableAbsence(t *testing.T) {
	var col Column
	if err := json.Unmarshal([]byte(`{"name":"c1","ordinal_position":1,"data_type_id":6}`), &col); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Nullable != nil {
		t.Error("expected absent nullable to decode as nil")
	}
}
