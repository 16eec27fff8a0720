package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formedit/pkg/schema"
)

func TestResolveSettings(t *testing.T) {
	yes, no := schema.Bool(true), schema.Bool(false)

	cases := []struct {
		name     string
		global   schema.Options
		schema   schema.Options
		instance schema.Options
		want     Settings
	}{
		{
			name: "zero layers",
			want: Settings{},
		},
		{
			name:   "global applies when unset below",
			global: schema.Options{DisableCollapse: yes, RemoveEmptyProperties: yes, GridColumns: 6},
			want:   Settings{DisableCollapse: true, RemoveEmptyProperties: true, GridColumns: 6},
		},
		{
			name:   "schema false beats global true",
			global: schema.Options{DisableCollapse: yes},
			schema: schema.Options{DisableCollapse: no},
			want:   Settings{},
		},
		{
			name:     "instance beats schema and global",
			global:   schema.Options{RemoveEmptyProperties: no},
			schema:   schema.Options{RemoveEmptyProperties: no, Image: yes},
			instance: schema.Options{RemoveEmptyProperties: yes, GridColumns: 4},
			want:     Settings{RemoveEmptyProperties: true, Image: true, GridColumns: 4},
		},
		{
			name:   "schema only switches",
			schema: schema.Options{Collapsed: yes, TableRow: yes},
			want:   Settings{Collapsed: true, TableRow: true},
		},
		{
			name:   "required by default from global",
			global: schema.Options{RequiredByDefault: yes},
			want:   Settings{RequiredByDefault: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveSettings(tc.global, tc.schema, tc.instance)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("settings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
