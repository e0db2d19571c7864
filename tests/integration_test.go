package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/expensescan/expensescan/internal/api"
	"github.com/expensescan/expensescan/internal/currency"
	"github.com/expensescan/expensescan/internal/expense"
	"github.com/expensescan/expensescan/internal/insights"
	"github.com/expensescan/expensescan/internal/scanning"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

// QueueCaller replays canned model responses in order, standing in for the
// Gemini endpoint. The rest of the pipeline (prompting, repair, decode,
// validation, persistence) runs for real.
type QueueCaller struct {
	responses []string
	calls     int
}

func (q *QueueCaller) Call(ctx context.Context, prompt string, image []byte) (string, error) {
	if q.calls >= len(q.responses) {
		return "", nil
	}
	resp := q.responses[q.calls]
	q.calls++
	return resp, nil
}

func (q *QueueCaller) Close() error { return nil }

// A truncated extraction response, cut off mid-array the way a token-limited
// generation ends. The repair pass has to recover the complete fields.
const truncatedExtraction = `{
  "date": "2025-03-20",
  "merchant": "Tesco Express",
  "amount": 12.50,
  "currency": "GBP",
  "category": "Groceries",
  "confidence": 0.92,
  "items": [
    {"name": "Milk 2L", "total_price": 2.50},
    {"name": "Bread", "total_pr`

const analysisResponse = `{
  "opportunities": [{
    "title": "Plan grocery trips",
    "rationale": "Frequent small purchases",
    "steps": ["Keep a list"],
    "monthly_estimate": 25,
    "difficulty": "easy",
    "impact": "medium"
  }],
  "categories": [{"category": "Groceries", "total": 12.50, "commentary": "Single trip"}],
  "patterns": ["One merchant dominates"],
  "actions": ["Set a weekly budget"]
}`

var _ = Describe("Integration", func() {
	var (
		tempDir   string
		db        *expense.BoltDB
		media     *expense.LocalMediaStore
		caller    *QueueCaller
		service   *expense.Service
		scheduler *insights.Scheduler
		server    *api.Server
		ghServer  *ghttp.Server
		err       error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "expensescan-test-*")
		Expect(err).NotTo(HaveOccurred())

		db, err = expense.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		media, err = expense.NewLocalMediaStore(filepath.Join(tempDir, "media"))
		Expect(err).NotTo(HaveOccurred())

		caller = &QueueCaller{responses: []string{truncatedExtraction, analysisResponse}}

		service = expense.NewService(db, scanning.NewExtractor(caller), media, currency.NewResolver("USD"))

		cache, cacheErr := insights.NewBoltCache(db.Handle())
		Expect(cacheErr).NotTo(HaveOccurred())
		scheduler = insights.NewScheduler(db, insights.NewAnalyzer(caller), cache)

		server = api.NewServer(service, scheduler, api.BasicAuth{}) // No auth for testing convenience
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if db != nil {
			db.Close()
		}
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
	})

	It("uploads a receipt, repairs the truncated response, persists it, and serves insights", func() {
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // get by id
			server.ServeHTTP, // fetch media
			server.ServeHTTP, // refresh insights
			server.ServeHTTP, // read insights
		)

		// --- Step 1: Upload ---

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("\x89PNG fake image data"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest("POST", ghServer.URL()+"/api/expenses", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var result expense.BatchResult
		Expect(json.NewDecoder(resp.Body).Decode(&result)).NotTo(HaveOccurred())
		Expect(result.Processed).To(Equal(1))
		Expect(result.Expenses).To(HaveLen(1))

		created := result.Expenses[0]
		Expect(created.Merchant).To(Equal("Tesco Express"))
		Expect(created.Amount).To(Equal(12.50))
		Expect(created.Currency).To(Equal("GBP"))
		// The complete first item survives the truncation cut; the partial
		// second one does not.
		Expect(created.Items).To(HaveLen(1))
		Expect(created.Items[0].Name).To(Equal("Milk 2L"))
		Expect(created.Date.Year()).To(Equal(2025))
		Expect(created.Date.Month()).To(Equal(time.March))

		// --- Step 2: Fetch the record back ---

		resp, err = http.Get(ghServer.URL() + "/api/expenses/" + created.ID)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var fetched expense.Expense
		Expect(json.NewDecoder(resp.Body).Decode(&fetched)).NotTo(HaveOccurred())
		Expect(fetched.Merchant).To(Equal("Tesco Express"))

		// --- Step 3: Fetch the stored media ---

		resp, err = http.Get(ghServer.URL() + "/api/expenses/" + created.ID + "/file")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		// --- Step 4: Generate and read insights ---

		resp, err = http.Post(ghServer.URL()+"/api/insights/refresh", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = http.Get(ghServer.URL() + "/api/insights")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var insightsBody struct {
			Snapshot  *insights.Snapshot `json:"snapshot"`
			Freshness string             `json:"freshness"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&insightsBody)).NotTo(HaveOccurred())
		Expect(insightsBody.Snapshot.ExpenseCount).To(Equal(1))
		Expect(insightsBody.Snapshot.Opportunities).To(HaveLen(1))
		Expect(insightsBody.Freshness).To(Equal("fresh"))
	})
})
