package main

import (
	"reflect"
	"testing"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/benchmark/simulation"
)

func TestParseScenario(t *testing.T) {
	tests := []struct {
		input   string
		want    simulation.Scenario
		wantErr bool
	}{
		{
			input: "small=16:LRU",
			want: simulation.Scenario{Name: "small", Config: tiercache.Config{
				Levels: []tiercache.LevelConfig{{Capacity: 16, Policy: "LRU"}},
			}},
		},
		{
			input: "deep=16:LRU, 64:LFU,demote",
			want: simulation.Scenario{Name: "deep", Config: tiercache.Config{
				Levels: []tiercache.LevelConfig{
					{Capacity: 16, Policy: "LRU"},
					{Capacity: 64, Policy: "LFU"},
				},
				Demotion: true,
			}},
		},
		{input: "16:LRU", wantErr: true},
		{input: "=16:LRU", wantErr: true},
		{input: "x=demote", wantErr: true},
		{input: "x=16:ARC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseScenario(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseScenario(%q) should return error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScenario(%q) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseScenario(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultScenariosParse(t *testing.T) {
	for _, s := range defaultScenarios {
		if _, err := parseScenario(s); err != nil {
			t.Errorf("parseScenario(%q) error = %v", s, err)
		}
	}
}

func TestFirstName(t *testing.T) {
	scenarios := []simulation.Scenario{{Name: "mixed"}, {Name: "lfu"}, {Name: "lru"}}
	if got := firstName(scenarios); got != "lfu" {
		t.Errorf("firstName() = %q, want %q", got, "lfu")
	}
}
