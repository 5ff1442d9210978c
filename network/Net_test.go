package network

import (
	"math"
	"testing"

	"github.com/samuelfneumann/safebench/initwfn"
	G "gorgonia.org/gorgonia"
)

func testArchitecture() Architecture {
	return Architecture{
		StateDim:   8,
		ScalarDim:  4,
		ActionDim:  2,
		Encoder:    []int{6, 3},
		Hidden:     []int{5, 5},
		Activation: "relu",
		Init:       initwfn.Default(),
	}
}

func states(batch, dim int) []float64 {
	s := make([]float64, batch*dim)
	for i := range s {
		s[i] = math.Sin(float64(i))
	}
	return s
}

func run(t *testing.T, n *Net) {
	t.Helper()
	vm := G.NewTapeMachine(n.Graph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}
}

func TestActorOutputs(t *testing.T) {
	arch := testArchitecture()
	actor, err := NewActor(G.NewGraph(), arch, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := actor.SetInput(states(3, arch.StateDim)); err != nil {
		t.Fatal(err)
	}
	run(t, actor)

	mean, logStd := actor.Output(0), actor.Output(1)
	if len(mean) != 3*arch.ActionDim || len(logStd) != 3*arch.ActionDim {
		t.Fatalf("unexpected output sizes %v, %v", len(mean), len(logStd))
	}
	for _, m := range mean {
		if m <= -1 || m >= 1 {
			t.Errorf("mean %v outside (-1, 1)", m)
		}
	}
}

func TestQInputs(t *testing.T) {
	arch := testArchitecture()
	q, err := NewQ(G.NewGraph(), arch, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.SetInput(states(2, arch.StateDim)); err != nil {
		t.Fatal(err)
	}
	if err := q.SetAction([]float64{0.1, -0.2, 0.3, 0.4}); err != nil {
		t.Fatal(err)
	}
	run(t, q)
	if got := len(q.Output(0)); got != 2 {
		t.Errorf("expected 2 action values, got %v", got)
	}

	if err := q.SetInput(states(3, arch.StateDim)); err == nil {
		t.Error("expected error for wrong batch size")
	}

	v, err := NewValue(G.NewGraph(), arch, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.SetAction([]float64{0, 0, 0, 0}); err == nil {
		t.Error("value network should reject actions")
	}
}

func TestPolyak(t *testing.T) {
	arch := testArchitecture()
	target, err := NewValue(G.NewGraph(), arch, 1)
	if err != nil {
		t.Fatal(err)
	}
	live, err := NewValue(G.NewGraph(), arch, 1)
	if err != nil {
		t.Fatal(err)
	}

	before := target.Snapshot()
	if err := target.Polyak(live, 0); err != nil {
		t.Fatal(err)
	}
	assertParams(t, target.Snapshot(), before)

	if err := target.Polyak(live, 1); err != nil {
		t.Fatal(err)
	}
	assertParams(t, target.Snapshot(), live.Snapshot())

	if err := target.Polyak(live, 1.5); err == nil {
		t.Error("expected error for tau outside [0, 1]")
	}
}

func TestPolyakAverage(t *testing.T) {
	arch := testArchitecture()
	target, _ := NewValue(G.NewGraph(), arch, 1)
	live, _ := NewValue(G.NewGraph(), arch, 1)

	tau := 0.25
	before := target.Snapshot()
	source := live.Snapshot()
	if err := target.Polyak(live, tau); err != nil {
		t.Fatal(err)
	}

	for name, p := range target.Snapshot() {
		for i, w := range p.Data {
			want := before[name].Data[i]*(1-tau) + source[name].Data[i]*tau
			if math.Abs(w-want) > 1e-12 {
				t.Fatalf("%v[%v]: want %v, got %v", name, i, want, w)
			}
		}
	}
}

func TestSetIncompatible(t *testing.T) {
	arch := testArchitecture()
	v, _ := NewValue(G.NewGraph(), arch, 1)
	q, _ := NewQ(G.NewGraph(), arch, 1)
	if err := v.Set(q); err == nil {
		t.Error("expected error copying a Q network into a value network")
	}

	other := arch
	other.Hidden = []int{4}
	w, _ := NewValue(G.NewGraph(), other, 1)
	if err := v.Set(w); err == nil {
		t.Error("expected error copying between architectures")
	}
}

func TestSnapshotRestore(t *testing.T) {
	arch := testArchitecture()
	a, _ := NewActor(G.NewGraph(), arch, 1)
	b, _ := NewActor(G.NewGraph(), arch, 1)

	if err := b.Restore(a.Snapshot()); err != nil {
		t.Fatal(err)
	}
	assertParams(t, b.Snapshot(), a.Snapshot())

	params := a.Snapshot()
	delete(params, "mean/weights")
	if err := b.Restore(params); err == nil {
		t.Error("expected error restoring incomplete parameters")
	}
}

func TestCloneWithBatch(t *testing.T) {
	arch := testArchitecture()
	net, _ := NewActor(G.NewGraph(), arch, 4)
	input := states(4, arch.StateDim)
	if err := net.SetInput(input); err != nil {
		t.Fatal(err)
	}
	run(t, net)

	clone, err := net.CloneWithBatch(1)
	if err != nil {
		t.Fatal(err)
	}
	single := clone.(*Net)
	if err := single.SetInput(input[arch.StateDim : 2*arch.StateDim]); err != nil {
		t.Fatal(err)
	}
	run(t, single)

	want := net.Output(0)[arch.ActionDim : 2*arch.ActionDim]
	got := single.Output(0)
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("clone output %v: want %v, got %v", i, want[i], got[i])
		}
	}
}

func assertParams(t *testing.T, got, want map[string]Param) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v parameters, got %v", len(want), len(got))
	}
	for name, p := range want {
		q, ok := got[name]
		if !ok {
			t.Fatalf("missing parameter %v", name)
		}
		for i := range p.Data {
			if p.Data[i] != q.Data[i] {
				t.Fatalf("%v[%v]: want %v, got %v", name, i, p.Data[i],
					q.Data[i])
			}
		}
	}
}
