package main_test

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// The served OpenAPI document must stay loadable and internally consistent;
// the Swagger UI and client generators both consume it as-is.
var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("api/openapi.yml")
		Expect(err).ToNot(HaveOccurred())
	})

	It("validates against the OpenAPI 3 spec", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every mounted payment route", func() {
		for _, path := range []string{
			"/auth/login",
			"/payments/orders",
			"/payments/verify",
			"/payments/webhook",
			"/health",
			"/ping",
		} {
			item := doc.Paths.Find(path)
			Expect(item).ToNot(BeNil(), "missing path %s", path)
		}
	})

	It("requires auth on order creation only", func() {
		orders := doc.Paths.Find("/payments/orders")
		Expect(orders.Post.Security).ToNot(BeNil())

		webhook := doc.Paths.Find("/payments/webhook")
		Expect(webhook.Post.Security).To(BeNil())
	})
})
