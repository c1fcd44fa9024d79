package bin

import "testing"

func TestAddrSet(t *testing.T) {
	golden := []struct {
		in   string
		want Addr
	}{
		{in: "0x401000", want: 0x401000},
		{in: "0X1010", want: 0x1010},
		{in: "4096", want: 4096},
	}
	for _, g := range golden {
		var a Addr
		if err := a.Set(g.in); err != nil {
			t.Errorf("Set(%q): unexpected error: %v", g.in, err)
			continue
		}
		if a != g.want {
			t.Errorf("Set(%q) = %v, want %v", g.in, a, g.want)
		}
	}
}

func TestAddrsSort(t *testing.T) {
	as := Addrs{0x3000, 0x1000, 0x2000}
	if as.Less(1, 0) != true {
		t.Errorf("Less(1, 0) = false, want true")
	}
}

func TestAddrString(t *testing.T) {
	a := Addr(0x401000)
	want := "0x0000000000401000"
	if got := a.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
