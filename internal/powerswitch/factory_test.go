package powerswitch

import (
	"context"
	"testing"
)

func TestFactory_SharesClientPerEndpoint(t *testing.T) {
	f := newFakeSwitch(t)
	factory := NewFactory()
	defer factory.Close()

	a := factory.Get(context.Background(), f.endpoint())
	b := factory.Get(context.Background(), f.endpoint())

	if a != b {
		t.Error("Expected the same client for the same endpoint")
	}
	if f.count("/login.tgi") != 1 {
		t.Errorf("Expected a single login, got %d", f.count("/login.tgi"))
	}
	if len(factory.Clients()) != 1 {
		t.Errorf("Expected 1 client, got %d", len(factory.Clients()))
	}
}

func TestFactory_DistinctEndpoints(t *testing.T) {
	f := newFakeSwitch(t)
	factory := NewFactory()

	ep := f.endpoint()
	other := ep
	other.Username = "operator"

	a := factory.Get(context.Background(), ep)
	b := factory.Get(context.Background(), other)

	if a == b {
		t.Error("Expected different clients for different users")
	}
	if b.Reachable() {
		t.Error("Expected the unknown user to fail login")
	}
}

func TestFactories_AreIndependent(t *testing.T) {
	f := newFakeSwitch(t)

	a := NewFactory().Get(context.Background(), f.endpoint())
	b := NewFactory().Get(context.Background(), f.endpoint())

	if a == b {
		t.Error("Expected separate factories not to share clients")
	}
}
