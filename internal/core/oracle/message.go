package oracle

import "strconv"

// SignableMessage builds the canonical pre-image the oracle signature covers:
//
//	{"pr_version":<v>,"spot":<s>,"moving_average":<m>,"timestamp":<t>}
//
// No whitespace, exactly these names, exactly this order, base-10 unsigned
// formatting. The bytes are appended directly rather than produced by a JSON
// encoder: generic encoders reorder or escape, and any deviation here breaks
// verification against otherwise-valid signatures.
func (r *PricingRecord) SignableMessage() []byte {
	b := make([]byte, 0, 96)
	b = append(b, `{"pr_version":`...)
	b = strconv.AppendUint(b, r.Version, 10)
	b = append(b, `,"spot":`...)
	b = strconv.AppendUint(b, r.Spot, 10)
	b = append(b, `,"moving_average":`...)
	b = strconv.AppendUint(b, r.MovingAverage, 10)
	b = append(b, `,"timestamp":`...)
	b = strconv.AppendUint(b, r.Timestamp, 10)
	b = append(b, '}')
	return b
}
