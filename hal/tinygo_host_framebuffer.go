//go:build tinygo && !baremetal

package hal

// tinyGoHostFramebuffer keeps frames in memory only; there is no window.
type tinyGoHostFramebuffer struct {
	w      int
	h      int
	stride int
	buf    []byte
}

func newTinyGoHostFramebuffer(w, h int) *tinyGoHostFramebuffer {
	stride := w * 2
	return &tinyGoHostFramebuffer{
		w:      w,
		h:      h,
		stride: stride,
		buf:    make([]byte, stride*h),
	}
}

func (f *tinyGoHostFramebuffer) Width() int             { return f.w }
func (f *tinyGoHostFramebuffer) Height() int            { return f.h }
func (f *tinyGoHostFramebuffer) Format() PixelFormat    { return PixelFormatRGB565 }
func (f *tinyGoHostFramebuffer) StrideBytes() int       { return f.stride }
func (f *tinyGoHostFramebuffer) Buffer() []byte         { return f.buf }
func (f *tinyGoHostFramebuffer) ClearRGB(r, g, b uint8) { fillRGB565(f.buf, r, g, b) }
func (f *tinyGoHostFramebuffer) Present() error         { return nil }
