package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage(w, h))).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("prepareImageData", func() {
	var (
		data        []byte
		contentType string
		result      []byte
		err         error
	)

	JustBeforeEach(func() {
		result, err = prepareImageData(data, contentType)
	})

	When("the upload is already PNG", func() {
		BeforeEach(func() {
			data = testPNG(4, 4)
			contentType = "image/png"
		})

		It("should pass it through", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(data))
		})
	})

	When("the upload is JPEG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, testImage(8, 8), nil)).To(Succeed())
			data = buf.Bytes()
			contentType = "image/jpeg"
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			img, format, decodeErr := image.Decode(bytes.NewReader(result))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(img.Bounds().Dx()).To(Equal(8))
		})
	})

	When("the content type is missing", func() {
		BeforeEach(func() {
			data = testPNG(4, 4)
			contentType = ""
		})

		It("should sniff it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(data))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("just some text")
			contentType = "image/jpeg"
		})

		It("should return ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})
})

var _ = Describe("isHEIC", func() {
	It("should detect the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEIC(data, "")).To(BeTrue())
	})

	It("should trust the MIME type", func() {
		Expect(isHEIC(nil, "image/heif")).To(BeTrue())
	})

	It("should reject other data", func() {
		Expect(isHEIC(testPNG(2, 2), "image/png")).To(BeFalse())
	})
})

var _ = Describe("normalizeMimeType", func() {
	It("should drop parameters and lowercase", func() {
		Expect(normalizeMimeType(nil, "Image/PNG; charset=binary")).To(Equal("image/png"))
	})
})

var _ = Describe("preprocessForOCR", func() {
	It("should upscale small images", func() {
		out, err := preprocessForOCR(testPNG(20, 30))
		Expect(err).NotTo(HaveOccurred())
		img, _, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dy()).To(Equal(ocrHeight))
	})

	It("should leave large images at their size", func() {
		out, err := preprocessForOCR(testPNG(10, 1000))
		Expect(err).NotTo(HaveOccurred())
		img, _, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dy()).To(Equal(1000))
	})

	It("should reject data that is not an image", func() {
		_, err := preprocessForOCR([]byte("nope"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("meanConfidence", func() {
	It("should skip negative values", func() {
		Expect(meanConfidence([]float64{80, -1, 90})).To(Equal(85.0))
	})

	It("should return zero for no words", func() {
		Expect(meanConfidence(nil)).To(BeZero())
	})
})
