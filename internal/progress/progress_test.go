package progress

import "testing"

func TestNewDatasourceProgress_ClampsPercent(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		got := NewDatasourceProgress("files/a.md", tt.in, "")
		if got.Percent != tt.want {
			t.Errorf("NewDatasourceProgress(%d).Percent = %d, want %d", tt.in, got.Percent, tt.want)
		}
	}
}

func TestTally_Record(t *testing.T) {
	var tally Tally
	tally.Record(StatusOK)
	tally.Record(StatusOK)
	tally.Record(StatusFailed)
	tally.Record(StatusSkipped)

	if tally.OK != 2 || tally.Failed != 1 || tally.Skipped != 1 {
		t.Errorf("Tally = %+v, want {OK:2 Failed:1 Skipped:1}", tally)
	}
}

func TestEmit_NilCallbackIsNoop(t *testing.T) {
	Emit(nil, Event{Kind: TaskStarted})
}

func TestEmit_CallsCallback(t *testing.T) {
	var got Event
	Emit(func(e Event) { got = e }, Event{Kind: DatasourceStarted, DatasourceID: "x"})
	if got.Kind != DatasourceStarted || got.DatasourceID != "x" {
		t.Errorf("Emit did not call back with expected event: %+v", got)
	}
}
