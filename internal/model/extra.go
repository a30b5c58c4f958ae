package model

import "gorm.io/datatypes"

const ExtraRefundFailedCode = "refund_failed_code"

// MergeExtra returns a copy of dst with every key of src set on it.
// Keys already present in dst are kept unless src overrides them.
func MergeExtra(dst datatypes.JSONMap, src map[string]any) datatypes.JSONMap {
	res := make(datatypes.JSONMap, len(dst)+len(src))
	for k, v := range dst {
		res[k] = v
	}
	for k, v := range src {
		res[k] = v
	}
	return res
}
