package service

import (
	"strconv"
	"strings"
)

// Reference is the business key a gateway echoes back in a notification.
// A bare order number targets an order. An installment charge is keyed as
// prefix_no_sequence where prefix_no is the plan number.
type Reference struct {
	Raw         string
	OrderNo     string
	PlanNo      string
	Sequence    int
	Installment bool
}

func ParseReference(raw string) (Reference, bool) {
	if raw == "" {
		return Reference{}, false
	}
	if !strings.Contains(raw, "_") {
		return Reference{Raw: raw, OrderNo: raw}, true
	}

	parts := strings.Split(raw, "_")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Reference{}, false
	}
	seq, err := strconv.ParseUint(parts[2], 10, 31)
	if err != nil {
		return Reference{}, false
	}

	return Reference{
		Raw:         raw,
		PlanNo:      parts[0] + "_" + parts[1],
		Sequence:    int(seq),
		Installment: true,
	}, true
}

func InstallmentReference(planNo string, sequence int) string {
	return planNo + "_" + strconv.Itoa(sequence)
}

func (r Reference) lockKey() string {
	if r.Installment {
		return "installment:" + r.PlanNo
	}
	return "order:" + r.OrderNo
}

func (r Reference) String() string {
	return r.Raw
}
