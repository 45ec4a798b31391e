package diet

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/diet-tracker/internal/nutrition"
	"github.com/zombor/diet-tracker/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		detector    *mockDetector
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	postJSON := func(path string, body any) *http.Response {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	doRequest := func(method, path string, body any) *http.Response {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		}
		req, err := http.NewRequest(method, ghttpServer.URL()+path, reader)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeBody := func(resp *http.Response, target any) {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(data, target)).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		db = newMockDB()
		detector = &mockDetector{}
		extractor = &mockExtractor{}
		auth = BasicAuth{}
		timeSrc := &mockTimeSource{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
		service = NewServiceWithDeps(db, detector, extractor, nil, &mockIDGenerator{}, timeSrc)
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		When("credentials are missing", func() {
			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/items")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})
		})

		When("credentials are valid", func() {
			It("should return status OK", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/items", nil)
				Expect(err).NotTo(HaveOccurred())
				req.SetBasicAuth("user", "pass")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})

	Describe("handleScan", func() {
		When("the scan yields parsed candidates", func() {
			BeforeEach(func() {
				detector.text = "BANANA 1.29\nMILK 3.99"
				extractor.response = `[{"name":"Banana","price":1.29},{"name":"Milk","price":3.99}]`
			})

			It("should return the candidates in the items field", func() {
				resp := postJSON("/api/scan", map[string]string{"imageData": payloadFor("fake receipt")})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body struct {
					Items []scanning.Candidate `json:"items"`
				}
				decodeBody(resp, &body)
				Expect(body.Items).To(HaveLen(2))
				Expect(body.Items[0].Name).To(Equal("Banana"))
			})
		})

		When("the model response did not parse", func() {
			BeforeEach(func() {
				detector.text = "BANANA 1.29"
				extractor.response = "no items found here"
			})

			It("should return the raw text in the items field", func() {
				resp := postJSON("/api/scan", map[string]string{"imageData": payloadFor("fake receipt")})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body struct {
					Items string `json:"items"`
				}
				decodeBody(resp, &body)
				Expect(body.Items).To(Equal("no items found here"))
			})
		})

		When("the OCR service is unreachable", func() {
			BeforeEach(func() {
				detector.err = &scanning.TransportError{Service: "vision", Err: errors.New("connection refused")}
			})

			It("should return status Bad Gateway with an error body", func() {
				resp := postJSON("/api/scan", map[string]string{"imageData": payloadFor("fake receipt")})
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

				var body map[string]string
				decodeBody(resp, &body)
				Expect(body).To(HaveKey("error"))
			})
		})

		When("imageData is missing", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/api/scan", map[string]string{})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the payload is not valid base64", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/api/scan", map[string]string{"imageData": "not base64!!!"})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleCaptureScan", func() {
		When("no camera is configured", func() {
			It("should return status Service Unavailable", func() {
				resp := postJSON("/api/scan/capture", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListCandidates", func() {
		BeforeEach(func() {
			service.queue.Replace([]scanning.Candidate{{Name: "Banana", Price: 1.29}})
		})

		It("should return the pending candidates", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/scan/candidates")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var candidates []scanning.Candidate
			decodeBody(resp, &candidates)
			Expect(candidates).To(HaveLen(1))
			Expect(candidates[0].Name).To(Equal("Banana"))
		})
	})

	Describe("handleApprove", func() {
		BeforeEach(func() {
			service.queue.Replace([]scanning.Candidate{{Name: "Banana", Price: 1.29}})
		})

		When("the index is valid", func() {
			It("should return the created item", func() {
				resp := postJSON("/api/scan/candidates/approve", map[string]int{"index": 0})
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var item FoodItem
				decodeBody(resp, &item)
				Expect(item.Name).To(Equal("Banana"))
				Expect(item.ID).NotTo(BeEmpty())
				Expect(item.Date).To(Equal("2026-08-30"))
			})
		})

		When("the index is out of range", func() {
			It("should return status Not Found", func() {
				resp := postJSON("/api/scan/candidates/approve", map[string]int{"index": 5})
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleApproveAll", func() {
		BeforeEach(func() {
			service.queue.Replace([]scanning.Candidate{
				{Name: "Banana", Price: 1.29},
				{Name: "Milk", Price: 3.99},
			})
		})

		It("should return one item per candidate", func() {
			resp := postJSON("/api/scan/candidates/approve-all", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var items []FoodItem
			decodeBody(resp, &items)
			Expect(items).To(HaveLen(2))
		})
	})

	Describe("handleDismiss", func() {
		BeforeEach(func() {
			service.queue.Replace([]scanning.Candidate{{Name: "Banana"}, {Name: "Milk"}})
		})

		When("dismissing by index", func() {
			It("should return status No Content", func() {
				resp := postJSON("/api/scan/candidates/dismiss", map[string]int{"index": 0})
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(service.PendingCandidates()).To(HaveLen(1))
			})
		})

		When("dismissing by name", func() {
			It("should return status No Content", func() {
				resp := postJSON("/api/scan/candidates/dismiss", map[string]string{"name": "Milk"})
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(service.PendingCandidates()[0].Name).To(Equal("Banana"))
			})
		})

		When("the candidate does not exist", func() {
			It("should return status Not Found", func() {
				resp := postJSON("/api/scan/candidates/dismiss", map[string]int{"index": 9})
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})

		When("neither index nor name is given", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/api/scan/candidates/dismiss", map[string]string{})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleEdit", func() {
		BeforeEach(func() {
			service.queue.Replace([]scanning.Candidate{{Name: "Banana", Price: 1.29}})
		})

		It("should mutate the candidate", func() {
			resp := postJSON("/api/scan/candidates/edit", map[string]any{
				"index": 0, "field": "price", "value": "1.49",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			resp.Body.Close()
			Expect(service.PendingCandidates()[0].Price).To(Equal(1.49))
		})

		When("the field is unknown", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/api/scan/candidates/edit", map[string]any{
					"index": 0, "field": "color", "value": "yellow",
				})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListItems", func() {
		BeforeEach(func() {
			db.items["1"] = &FoodItem{ID: "1", Name: "Banana"}
			db.items["2"] = &FoodItem{ID: "2", Name: "Milk"}
		})

		It("should return all items", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/items")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var items []FoodItem
			decodeBody(resp, &items)
			Expect(items).To(HaveLen(2))
		})
	})

	Describe("handleAddItem", func() {
		When("the item is valid", func() {
			It("should return the created item", func() {
				resp := postJSON("/api/items", FoodItem{Name: "Banana", Price: 1.29})
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var item FoodItem
				decodeBody(resp, &item)
				Expect(item.ID).NotTo(BeEmpty())
			})
		})

		When("the name is missing", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/api/items", FoodItem{Price: 1.29})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleDeleteItem", func() {
		BeforeEach(func() {
			db.items["1"] = &FoodItem{ID: "1", Name: "Banana"}
		})

		When("the item exists", func() {
			It("should return status No Content", func() {
				resp := doRequest("DELETE", "/api/items/1", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(db.items).To(BeEmpty())
			})
		})

		When("the item does not exist", func() {
			It("should return status Not Found", func() {
				resp := doRequest("DELETE", "/api/items/missing", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetTargets", func() {
		It("should return the default targets when none were saved", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/targets")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var targets nutrition.Targets
			decodeBody(resp, &targets)
			Expect(targets).To(Equal(nutrition.DefaultTargets()))
		})
	})

	Describe("handleSetTargets", func() {
		It("should persist the new targets", func() {
			custom := nutrition.DefaultTargets()
			custom.Macros.Protein = 80

			resp := doRequest("PUT", "/api/targets", custom)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
			Expect(db.targets.Macros.Protein).To(Equal(80.0))
		})
	})

	Describe("handleGetBudget", func() {
		It("should return the default budget when none was saved", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/budget")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]float64
			decodeBody(resp, &body)
			Expect(body["budget"]).To(Equal(150.0))
		})
	})

	Describe("handleSetBudget", func() {
		When("the budget is positive", func() {
			It("should persist it", func() {
				resp := doRequest("PUT", "/api/budget", map[string]float64{"budget": 200})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
				Expect(*db.budget).To(Equal(200.0))
			})
		})

		When("the budget is not positive", func() {
			It("should return status Bad Request", func() {
				resp := doRequest("PUT", "/api/budget", map[string]float64{"budget": -5})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleBudgetStatus", func() {
		BeforeEach(func() {
			db.items["1"] = &FoodItem{ID: "1", Date: "2026-08-29", Price: 40}
		})

		It("should return the trailing week summary", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/budget/status")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var status BudgetStatus
			decodeBody(resp, &status)
			Expect(status.Spent).To(Equal(40.0))
			Expect(status.Remaining).To(Equal(110.0))
		})
	})

	Describe("handleProgress", func() {
		BeforeEach(func() {
			db.items["1"] = &FoodItem{
				ID: "1", Date: "2026-08-30", Name: "Banana",
				Macros: nutrition.Macros{Protein: 10, Carbs: 27},
			}
		})

		It("should return the daily summary", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/progress?date=2026-08-30")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var progress DailyProgress
			decodeBody(resp, &progress)
			Expect(progress.Meals).To(Equal(1))
			Expect(progress.Calories).To(Equal(148.0))
		})

		When("the date is malformed", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/progress?date=yesterday")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListNotifications", func() {
		BeforeEach(func() {
			db.notifications["1"] = &Notification{ID: "1", Title: "Item logged!"}
		})

		It("should return all notifications", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/notifications")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var notifications []Notification
			decodeBody(resp, &notifications)
			Expect(notifications).To(HaveLen(1))
		})
	})

	Describe("handleMarkNotificationRead", func() {
		BeforeEach(func() {
			db.notifications["1"] = &Notification{ID: "1", Title: "Item logged!"}
		})

		When("the notification exists", func() {
			It("should return status No Content", func() {
				resp := postJSON("/api/notifications/1/read", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(db.notifications["1"].Read).To(BeTrue())
			})
		})

		When("the notification does not exist", func() {
			It("should return status Not Found", func() {
				resp := postJSON("/api/notifications/missing/read", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleClearNotifications", func() {
		BeforeEach(func() {
			db.notifications["1"] = &Notification{ID: "1"}
		})

		It("should remove all notifications", func() {
			resp := doRequest("DELETE", "/api/notifications", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			resp.Body.Close()
			Expect(db.notifications).To(BeEmpty())
		})
	})
})
