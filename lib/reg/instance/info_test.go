package instance

import (
	"encoding/xml"
	"testing"
)

func TestWithDefaults(t *testing.T) {
	info := Info{App: "registry"}.WithDefaults()

	if info.ID == "" {
		t.Error("expected a generated id")
	}
	if info.Status != StatusStarting {
		t.Errorf("expected STARTING, got %s", info.Status)
	}
	if info.DataCenter.Name != DataCenterLocal {
		t.Errorf("expected local datacenter, got %s", info.DataCenter.Name)
	}

	other := Info{App: "registry"}.WithDefaults()
	if other.ID == info.ID {
		t.Error("expected distinct generated ids")
	}
}

type LegacyWireCase struct {
	In       Status
	Expected Status
}

var legacyWireCases = []LegacyWireCase{
	{StatusUp, StatusUp},
	{StatusDown, StatusDown},
	{StatusStarting, StatusStarting},
	{StatusOutOfService, StatusDown},
	{StatusUnknown, StatusUnknown},
	{Status("BOGUS"), StatusUnknown},
}

func TestStatus_LegacyWire(t *testing.T) {
	for _, c := range legacyWireCases {
		if actual := c.In.LegacyWire(); actual != c.Expected {
			t.Errorf("%s: expected %s, got %s", c.In, c.Expected, actual)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if ParseStatus("UP") != StatusUp {
		t.Error("expected UP")
	}
	if ParseStatus("whatever") != StatusUnknown {
		t.Error("expected UNKNOWN for unrecognized value")
	}
}

func TestMetadata_XML(t *testing.T) {
	in := Info{
		ID:     "i-1",
		App:    "registry",
		Status: StatusUp,
		Metadata: Metadata{
			"zone":    "zone-a",
			"version": "2",
		},
	}

	data, err := xml.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out Info
	if err = xml.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	if out.Metadata["zone"] != "zone-a" || out.Metadata["version"] != "2" {
		t.Errorf("metadata did not survive xml: %#v", out.Metadata)
	}
}

func TestLocal_SetStatus(t *testing.T) {
	local := NewLocal(Info{App: "registry", ID: "i-1"})

	before := local.Local()
	local.SetStatus(StatusUp)
	after := local.Local()

	if before.Status != StatusStarting {
		t.Errorf("expected STARTING before, got %s", before.Status)
	}
	if after.Status != StatusUp {
		t.Errorf("expected UP after, got %s", after.Status)
	}
	if after.LastDirty == 0 {
		t.Error("expected dirty timestamp to move")
	}

	// reads are copies
	after.Metadata = Metadata{"mutated": "yes"}
	if local.Local().Metadata != nil {
		t.Error("expected reads to be isolated copies")
	}
}
