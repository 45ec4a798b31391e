package scanning

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("OpenAI", func() {
	var (
		server    *ghttp.Server
		extractor *OpenAI
		response  string
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		extractor, err = NewOpenAI("test-key", server.URL(), "gpt-4")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if server.HTTPTestServer != nil {
			server.Close()
		}
	})

	Describe("NewOpenAI", func() {
		When("the api key is missing", func() {
			It("returns an error", func() {
				_, newErr := NewOpenAI("", "", "")
				Expect(newErr).To(HaveOccurred())
			})
		})
	})

	Describe("ExtractItems", func() {
		JustBeforeEach(func() {
			response, err = extractor.ExtractItems(context.Background(), "BANANA 1.29\nMILK 3.99")
		})

		When("the completion succeeds", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/chat/completions"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
					ghttp.VerifyJSONRepresenting(chatRequest{
						Model: "gpt-4",
						Messages: []chatMessage{
							{Role: "system", Content: itemExtractionPrompt},
							{Role: "user", Content: "BANANA 1.29\nMILK 3.99"},
						},
						Temperature: 0.2,
						MaxTokens:   1500,
					}),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
						"choices": []map[string]any{
							{"message": map[string]string{"role": "assistant", "content": `[{"name":"Banana","price":1.29}]`}},
						},
					}),
				))
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the raw model response", func() {
				Expect(response).To(Equal(`[{"name":"Banana","price":1.29}]`))
			})
		})

		When("the service returns a non-200 status", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))
			})

			It("returns a transport error", func() {
				var transport *TransportError
				Expect(errors.As(err, &transport)).To(BeTrue())
				Expect(transport.Service).To(Equal("openai"))
			})
		})

		When("the response has no choices", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"choices": []map[string]any{},
				}))
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})

			It("does not flag it as a transport error", func() {
				var transport *TransportError
				Expect(errors.As(err, &transport)).To(BeFalse())
			})
		})

		When("the service is unreachable", func() {
			BeforeEach(func() {
				server.Close()
			})

			It("returns a transport error", func() {
				var transport *TransportError
				Expect(errors.As(err, &transport)).To(BeTrue())
			})
		})
	})
})
