package sap_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
)

var _ = Describe("Factory", func() {
	newFactory := func(sapType string) *sap.Factory {
		return sap.NewFactory(internal.SAPConfig{Type: sapType}, testLogger())
	}

	Describe("SAPType", func() {
		It("should map the configured type case-insensitively", func() {
			Expect(newFactory("s4_onprem").SAPType()).To(Equal(sap.TypeS4OnPrem))
			Expect(newFactory("S4_CLOUD").SAPType()).To(Equal(sap.TypeS4Cloud))
			Expect(newFactory("ecc").SAPType()).To(Equal(sap.TypeECC))
		})

		It("should default unknown types to ECC", func() {
			Expect(newFactory("").SAPType()).To(Equal(sap.TypeECC))
			Expect(newFactory("R3").SAPType()).To(Equal(sap.TypeECC))
		})
	})

	Describe("Create", func() {
		It("should build the adapter matching the configured type", func() {
			Expect(newFactory("ECC").Create()).To(BeAssignableToTypeOf(&sap.ECCAdapter{}))
			Expect(newFactory("S4_ONPREM").Create()).To(BeAssignableToTypeOf(&sap.S4OnPremAdapter{}))
			Expect(newFactory("S4_CLOUD").Create()).To(BeAssignableToTypeOf(&sap.S4CloudAdapter{}))
		})
	})
})
