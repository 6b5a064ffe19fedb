package mocks

import "math/bits"

// Synthetic H.264 bitstream pieces. The parameter sets are syntactically
// valid so that SPS parsers and avcC builders accept them; slices carry
// filler and are not decodable.

// SPS returns a constrained-baseline sequence parameter set NAL unit for
// the given picture size.
func SPS(width, height int) []byte {
	mbW := (width + 15) / 16
	mbH := (height + 15) / 16
	cropRight := (mbW*16 - width) / 2
	cropBottom := (mbH*16 - height) / 2

	w := &bitWriter{}
	w.bits(66, 8)   // profile_idc: baseline
	w.bits(0xC0, 8) // constraint_set0 and set1
	w.bits(31, 8)   // level_idc 3.1
	w.ue(0)         // seq_parameter_set_id
	w.ue(0)         // log2_max_frame_num_minus4
	w.ue(2)         // pic_order_cnt_type
	w.ue(1)         // max_num_ref_frames
	w.bits(0, 1)    // gaps_in_frame_num_value_allowed_flag
	w.ue(uint(mbW - 1))
	w.ue(uint(mbH - 1))
	w.bits(1, 1) // frame_mbs_only_flag
	w.bits(1, 1) // direct_8x8_inference_flag
	if cropRight > 0 || cropBottom > 0 {
		w.bits(1, 1)
		w.ue(0)
		w.ue(uint(cropRight))
		w.ue(0)
		w.ue(uint(cropBottom))
	} else {
		w.bits(0, 1)
	}
	w.bits(0, 1) // vui_parameters_present_flag
	w.trailing()

	return append([]byte{0x67}, escape(w.buf)...)
}

// PPS returns a picture parameter set NAL unit matching SPS.
func PPS() []byte {
	w := &bitWriter{}
	w.ue(0)      // pic_parameter_set_id
	w.ue(0)      // seq_parameter_set_id
	w.bits(0, 1) // entropy_coding_mode_flag
	w.bits(0, 1) // bottom_field_pic_order_in_frame_present_flag
	w.ue(0)      // num_slice_groups_minus1
	w.ue(0)      // num_ref_idx_l0_default_active_minus1
	w.ue(0)      // num_ref_idx_l1_default_active_minus1
	w.bits(0, 1) // weighted_pred_flag
	w.bits(0, 2) // weighted_bipred_idc
	w.se(0)      // pic_init_qp_minus26
	w.se(0)      // pic_init_qs_minus26
	w.se(0)      // chroma_qp_index_offset
	w.bits(1, 1) // deblocking_filter_control_present_flag
	w.bits(0, 1) // constrained_intra_pred_flag
	w.bits(0, 1) // redundant_pic_cnt_present_flag
	w.trailing()

	return append([]byte{0x68}, escape(w.buf)...)
}

// AccessUnit returns an Annex B access unit: delimiter, parameter sets on
// key frames, and one filler slice.
func AccessUnit(width, height int, key bool) []byte {
	startCode := []byte{0, 0, 0, 1}

	var au []byte
	au = append(au, startCode...)
	au = append(au, 0x09, 0xF0)
	if key {
		au = append(au, startCode...)
		au = append(au, SPS(width, height)...)
		au = append(au, startCode...)
		au = append(au, PPS()...)
		au = append(au, startCode...)
		au = append(au, 0x65, 0x88, 0x84)
	} else {
		au = append(au, startCode...)
		au = append(au, 0x41, 0x9A, 0x02)
	}
	for i := 0; i < 16; i++ {
		au = append(au, 0xAB)
	}
	return au
}

type bitWriter struct {
	buf  []byte
	cur  byte
	used uint
}

func (w *bitWriter) bits(v uint, n int) {
	for i := n - 1; i >= 0; i-- {
		w.cur = w.cur<<1 | byte(v>>uint(i)&1)
		w.used++
		if w.used == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur, w.used = 0, 0
		}
	}
}

func (w *bitWriter) ue(v uint) {
	n := bits.Len(v + 1)
	w.bits(0, n-1)
	w.bits(v+1, n)
}

func (w *bitWriter) se(v int) {
	if v <= 0 {
		w.ue(uint(-2 * v))
		return
	}
	w.ue(uint(2*v - 1))
}

func (w *bitWriter) trailing() {
	w.bits(1, 1)
	for w.used != 0 {
		w.bits(0, 1)
	}
}

// escape inserts emulation prevention bytes.
func escape(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+4)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}
