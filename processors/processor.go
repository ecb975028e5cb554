// Package processors flattens decoded snapshots into partition rows. Every
// function here is pure and total: absent fields become nil, never zero.
package processors

func float64Ptr(v *float32) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func int32FromUint32(v *uint32) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

func int64FromUint64(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	i := int64(*v)
	return &i
}
