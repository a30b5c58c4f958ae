package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReference(t *testing.T) {
	testCases := []struct {
		raw    string
		want   Reference
		wantOK bool
	}{
		{raw: "ORD1", want: Reference{Raw: "ORD1", OrderNo: "ORD1"}, wantOK: true},
		{raw: "inst_ORD1_0", want: Reference{Raw: "inst_ORD1_0", PlanNo: "inst_ORD1", Sequence: 0, Installment: true}, wantOK: true},
		{raw: "inst_ORD1_12", want: Reference{Raw: "inst_ORD1_12", PlanNo: "inst_ORD1", Sequence: 12, Installment: true}, wantOK: true},
		{raw: ""},
		{raw: "ORD1_0"},
		{raw: "a_b_c_d"},
		{raw: "inst_ORD1_x"},
		{raw: "inst_ORD1_-1"},
		{raw: "inst_ORD1_+1"},
		{raw: "_ORD1_0"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseReference(tc.raw)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInstallmentReferenceRoundTrip(t *testing.T) {
	ref, ok := ParseReference(InstallmentReference("inst_ORD1", 2))
	assert.True(t, ok)
	assert.Equal(t, "inst_ORD1", ref.PlanNo)
	assert.Equal(t, 2, ref.Sequence)
}
