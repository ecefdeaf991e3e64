package receipt_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-reader/internal/dates"
	"github.com/zombor/receipt-reader/internal/parsing"
	"github.com/zombor/receipt-reader/internal/receipt"
	"github.com/zombor/receipt-reader/internal/scanning"
)

// stubScanner returns a canned transcript
type stubScanner struct {
	transcript *scanning.Transcript
}

func (s *stubScanner) ScanReceipt(imageData []byte, contentType string) (*scanning.Transcript, error) {
	return s.transcript, nil
}

func (s *stubScanner) Close() error {
	return nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Date(2024, 3, 21, 8, 0, 0, 0, time.UTC)
}

var _ = Describe("Integration", func() {
	var (
		db       receipt.DB
		store    receipt.Storage
		scanner  *stubScanner
		server   *receipt.Server
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		scanner = &stubScanner{transcript: &scanning.Transcript{
			Text:       "Corner Pharmacy\n03/20/2024\nVitamins $12.00\nBandages $4.50\nTax $1.10\nTotal $99.00",
			Confidence: 88,
			Engine:     scanning.EngineGemini,
		}}

		engine := parsing.NewEngine(parsing.Options{
			DateOrder: dates.MDY,
			Clock:     fixedClock{},
			Recorder:  parsing.NewSlogRecorder(nil),
		})
		service := receipt.NewService(db, scanner, store, engine)
		server = receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler("GET", ghttp.MatchRegexp(`.*`), server.ServeHTTP)
		ghServer.RouteToHandler("POST", ghttp.MatchRegexp(`.*`), server.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("should upload a mismatched receipt, queue it, and clear it with a review", func() {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake jpeg"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.Engine).To(Equal(scanning.EngineGemini))
		Expect(created.Parsed.Store()).To(Equal("Corner Pharmacy"))
		Expect(created.Parsed.Date).To(Equal("2024-03-20"))
		Expect(created.Parsed.Tax.StringFixed(2)).To(Equal("1.10"))
		Expect(created.Parsed.NeedsReview).To(BeTrue())
		Expect(created.Parsed.ReviewReason).To(Equal(parsing.ReasonItemsMismatch))

		// file and record are both persisted
		_, err = store.Get(created.Filename)
		Expect(err).NotTo(HaveOccurred())
		saved, err := db.GetReceipt(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Parsed.Items).To(HaveLen(2))

		queueResp, err := http.Get(ghServer.URL() + "/api/review")
		Expect(err).NotTo(HaveOccurred())
		defer queueResp.Body.Close()
		var queue []*receipt.Receipt
		Expect(json.NewDecoder(queueResp.Body).Decode(&queue)).To(Succeed())
		Expect(queue).To(HaveLen(1))

		reviewBody, err := json.Marshal(map[string]string{"total": "16.50", "note": "total misread"})
		Expect(err).NotTo(HaveOccurred())
		reviewResp, err := http.Post(ghServer.URL()+"/api/receipts/"+created.ID+"/review", "application/json", bytes.NewReader(reviewBody))
		Expect(err).NotTo(HaveOccurred())
		defer reviewResp.Body.Close()
		Expect(reviewResp.StatusCode).To(Equal(http.StatusCreated))

		var review receipt.Review
		Expect(json.NewDecoder(reviewResp.Body).Decode(&review)).To(Succeed())
		Expect(review.Total.StringFixed(2)).To(Equal("16.50"))
		Expect(review.StoreName).To(Equal("Corner Pharmacy"))

		afterResp, err := http.Get(ghServer.URL() + "/api/review")
		Expect(err).NotTo(HaveOccurred())
		defer afterResp.Body.Close()
		queue = nil
		Expect(json.NewDecoder(afterResp.Body).Decode(&queue)).To(Succeed())
		Expect(queue).To(BeEmpty())
	})

	It("should save a text transcript without a file", func() {
		data, err := json.Marshal(receipt.TextInput{Text: "ZZZ 999", Confidence: 40})
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(ghServer.URL()+"/api/receipts/text", "application/json", bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.Parsed.Date).To(Equal("2024-03-21"))
		Expect(created.Parsed.ReviewReason).To(ContainSubstring(parsing.ReasonNoDate))

		fileResp, err := http.Get(ghServer.URL() + "/api/receipts/" + created.ID + "/file")
		Expect(err).NotTo(HaveOccurred())
		defer fileResp.Body.Close()
		Expect(fileResp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
