package types

import "testing"

func TestPhysicalNamespace(t *testing.T) {
	id := TableIdentity{TenantID: "t1", Namespace: "sales", Name: "orders"}
	if got, want := id.PhysicalNamespace(), "t1_sales"; got != want {
		t.Fatalf("PhysicalNamespace() = %q, want %q", got, want)
	}
	if got, want := id.String(), "t1_sales/orders"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestCanonicalTypeName(t *testing.T) {
	cases := map[string]FieldType{
		"int":       TypeInteger,
		"Integer":   TypeInteger,
		"INTEGER":   TypeInteger,
		"struct":    TypeStruct,
		"bool":      TypeBoolean,
		"timestamp": TypeTimestamp,
	}
	for in, want := range cases {
		got, ok := CanonicalTypeName(in)
		if !ok || got != want {
			t.Fatalf("CanonicalTypeName(%q) = (%q, %v), want (%q, true)", in, got, ok, want)
		}
	}
	if _, ok := CanonicalTypeName("nonsense"); ok {
		t.Fatalf("CanonicalTypeName(nonsense) should fail")
	}
}

func TestIsSystemColumn(t *testing.T) {
	if !IsSystemColumn(ColRecordID) {
		t.Fatalf("expected %q to be a system column", ColRecordID)
	}
	if IsSystemColumn("price") {
		t.Fatalf("price should not be a system column")
	}
}
