package main

import (
	"strings"
	"testing"

	"github.com/musher-dev/zxdb-adapter/internal/doctor"
)

func TestRenderDoctor_Summary(t *testing.T) {
	tests := []struct {
		name    string
		results []doctor.Result
		want    []string
		absent  []string
	}{
		{
			name: "all pass",
			results: []doctor.Result{
				{Name: "Platform", Status: doctor.StatusPass, Message: "linux"},
				{Name: "Shell", Status: doctor.StatusPass, Message: "/bin/bash"},
			},
			want:   []string{"zxdb-adapter Doctor", "Platform", "/bin/bash", "2 passed"},
			absent: []string{"failed", "warning"},
		},
		{
			name: "mixed",
			results: []doctor.Result{
				{Name: "Platform", Status: doctor.StatusPass, Message: "linux"},
				{Name: "Backend Command", Status: doctor.StatusFail, Message: "fx not found", Detail: "Set console.command"},
				{Name: "Adapter Port", Status: doctor.StatusWarn, Message: "localhost:15678 is in use"},
			},
			want: []string{"fx not found", "    Set console.command", "1 passed, 1 failed, 1 warning(s)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, buf := testWriter()
			renderDoctor(out, tt.results)

			got := buf.String()

			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("doctor output missing %q:\n%s", want, got)
				}
			}

			for _, absent := range tt.absent {
				if strings.Contains(got, absent) {
					t.Errorf("doctor output should not contain %q:\n%s", absent, got)
				}
			}
		})
	}
}
