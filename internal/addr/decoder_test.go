package addr

import "testing"

func TestNewDecoder_rejectsBadGeometry(t *testing.T) {
	cases := []Geometry{
		{Size: 0, Associativity: 2, BlockSize: 64},
		{Size: 1000, Associativity: 2, BlockSize: 64}, // not power of two
		{Size: 1024, Associativity: 0, BlockSize: 64},
		{Size: 1024, Associativity: 2, BlockSize: 2}, // < 4
		{Size: 1024, Associativity: 2, BlockSize: 3}, // not power of two
		{Size: 1024, Associativity: 3, BlockSize: 64}, // 1024 % (3*64) != 0
	}
	for i, g := range cases {
		if _, err := NewDecoder(g); err == nil {
			t.Fatalf("case %d: expected error for geometry %+v", i, g)
		}
	}
}

func TestDecoder_Parse(t *testing.T) {
	// 1 KiB, 2-way, 64B blocks => numSets = 1024/(2*64) = 8
	d, err := NewDecoder(Geometry{Size: 1024, Associativity: 2, BlockSize: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NumSets() != 8 {
		t.Fatalf("expected 8 sets, got %d", d.NumSets())
	}

	got := d.Parse(0x00000000)
	want := Decoded{Tag: 0, SetIndex: 0, Offset: 0}
	if got != want {
		t.Fatalf("Parse(0) = %+v, want %+v", got, want)
	}

	// 0x40 = 64 -> block number 1, set index 1 % 8 = 1, tag 1/8 = 0
	got = d.Parse(0x40)
	want = Decoded{Tag: 0, SetIndex: 1, Offset: 0}
	if got != want {
		t.Fatalf("Parse(0x40) = %+v, want %+v", got, want)
	}

	// 0x100 = 256 -> block number 4, set index 4 % 8 = 4, tag 4/8 = 0
	got = d.Parse(0x100)
	want = Decoded{Tag: 0, SetIndex: 4, Offset: 0}
	if got != want {
		t.Fatalf("Parse(0x100) = %+v, want %+v", got, want)
	}

	// address that wraps into a second tag: block number 8 -> set 0, tag 1
	got = d.Parse(0x200)
	want = Decoded{Tag: 1, SetIndex: 0, Offset: 0}
	if got != want {
		t.Fatalf("Parse(0x200) = %+v, want %+v", got, want)
	}

	// non-zero offset
	got = d.Parse(0x47)
	want = Decoded{Tag: 0, SetIndex: 1, Offset: 7}
	if got != want {
		t.Fatalf("Parse(0x47) = %+v, want %+v", got, want)
	}
}
