package model

import (
	"encoding/binary"
	"testing"
)

func TestNewAddress_RejectsOutOfRangeValues(t *testing.T) {
	if _, err := NewAddress(-1); err == nil {
		t.Error("Expected error for negative address, got nil")
	}
	if _, err := NewAddress(0x100000000); err == nil {
		t.Error("Expected error for address above 32-bit range, got nil")
	}
	if _, err := NewAddress(0); err != nil {
		t.Errorf("Expected 0 to be a valid address, got %v", err)
	}
	if _, err := NewAddress(0xFFFFFFFF); err != nil {
		t.Errorf("Expected 4294967295 to be a valid address, got %v", err)
	}
}

func TestAddress_BytesRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 256, 2071538313, 0xFFFFFFFF} {
		addr, err := NewAddress(v)
		if err != nil {
			t.Fatalf("NewAddress(%d) failed: %v", v, err)
		}
		b := addr.Bytes()
		decoded := int64(binary.BigEndian.Uint32(b[:]))
		if decoded != v {
			t.Errorf("Bytes round trip for %d yielded %d", v, decoded)
		}
	}
}

func TestAddress_BytesAreBigEndian(t *testing.T) {
	addr, err := NewAddress(2071538313)
	if err != nil {
		t.Fatalf("NewAddress failed: %v", err)
	}
	b := addr.Bytes()
	want := [4]byte{0b01111011, 0b01111001, 0b00101010, 0b10001001}
	if b != want {
		t.Errorf("Expected bytes %v, got %v", want, b)
	}
}

func TestAddress_IsMulticast(t *testing.T) {
	for v := int64(3758096384); v <= 4026531839; v += 10000 {
		addr, _ := NewAddress(v)
		if !addr.IsMulticast() {
			t.Fatalf("Address %s (%d) should be multicast", addr, v)
		}
	}

	for v := int64(1); v < 3758096384; v += 100000 {
		addr, _ := NewAddress(v)
		if addr.IsMulticast() {
			t.Fatalf("Address %s (%d) should not be multicast", addr, v)
		}
	}
	for v := int64(4026531840); v <= 4294967295; v += 100000 {
		addr, _ := NewAddress(v)
		if addr.IsMulticast() {
			t.Fatalf("Address %s (%d) should not be multicast", addr, v)
		}
	}
}

func TestAddress_MulticastBounds(t *testing.T) {
	cases := []struct {
		value int64
		want  bool
	}{
		{1, false},
		{3758096383, false},
		{3758096384, true},
		{4026531839, true},
		{4026531840, false},
		{4294967295, false},
	}
	for _, c := range cases {
		addr, _ := NewAddress(c.value)
		if got := addr.IsMulticast(); got != c.want {
			t.Errorf("IsMulticast(%d) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestAddress_EqualityAndCompare(t *testing.T) {
	a1, _ := NewAddress(123)
	a2, _ := NewAddress(123)
	b, _ := NewAddress(234)

	if a1 != a2 {
		t.Error("Addresses built from the same value should be equal")
	}
	if a1 == b {
		t.Error("Addresses built from different values should not be equal")
	}
	if a1.Compare(a2) != 0 {
		t.Errorf("Compare of equal addresses = %d, want 0", a1.Compare(a2))
	}

	one, _ := NewAddress(1)
	two, _ := NewAddress(2)
	big, _ := NewAddress(0xFFFFFF)
	if one.Compare(two) >= 0 {
		t.Error("Address(1) should compare less than Address(2)")
	}
	if two.Compare(one) <= 0 {
		t.Error("Address(2) should compare greater than Address(1)")
	}
	if one.Compare(big) >= 0 {
		t.Error("Address(1) should compare less than Address(16777215)")
	}
}

func TestAddress_String(t *testing.T) {
	addr, _ := NewAddress(0xC0A80001)
	if got := addr.String(); got != "192.168.0.1" {
		t.Errorf("String() = %q, want %q", got, "192.168.0.1")
	}
}

func TestAddressBits(t *testing.T) {
	if AddressBits != 32 {
		t.Errorf("AddressBits = %d, want 32", AddressBits)
	}
}
