//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
	"github.com/codingiran/applicationskit/internal/infra"
	"github.com/codingiran/applicationskit/internal/usecase"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key><string>%s</string>
	<key>CFBundleDisplayName</key><string>%s</string>
	<key>CFBundleShortVersionString</key><string>%s</string>
</dict>
</plist>`

func writeBundle(parent, name, bundleID, display, version string) string {
	path := filepath.Join(parent, name)
	Expect(os.MkdirAll(filepath.Join(path, "Contents"), 0755)).To(Succeed())
	content := fmt.Sprintf(plistTemplate, bundleID, display, version)
	Expect(os.WriteFile(filepath.Join(path, "Contents", "Info.plist"), []byte(content), 0644)).To(Succeed())
	return path
}

var _ = Describe("Application Discovery", func() {
	var (
		root    string
		home    string
		service *usecase.DiscoveryService
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		home = GinkgoT().TempDir()

		logger := zap.NewNop()
		walker := infra.NewDirectoryWalker(nil, logger)
		introspector := infra.NewBundleIntrospectorWithHome(home, logger)
		// No metadata source: the index is unavailable in CI, and the
		// fast path is strictly an optimization.
		service = usecase.NewDiscoveryService(walker, nil, introspector, logger)
	})

	Describe("scanning a directory tree", func() {
		Context("with a well-formed bundle and a symlinked bundle", func() {
			It("discovers exactly the real bundle", func() {
				real := writeBundle(root, "Real.app", "com.example.real", "Real App", "1.0")
				Expect(os.Symlink(real, filepath.Join(root, "Alias.app"))).To(Succeed())

				apps, err := service.Discover(context.Background(), root)
				Expect(err).NotTo(HaveOccurred())
				Expect(apps).To(HaveLen(1))
				Expect(apps[0].BundleIdentifier).To(Equal("com.example.real"))
				Expect(apps[0].Name).To(Equal("Real App"))
				Expect(apps[0].Version).To(Equal("1.0"))
			})
		})

		Context("when the root directory does not exist", func() {
			It("returns nil, distinguishable from an empty result", func() {
				apps, err := service.Discover(context.Background(), filepath.Join(root, "missing"))
				Expect(err).NotTo(HaveOccurred())
				Expect(apps).To(BeNil())
			})
		})

		Context("when the root directory is empty", func() {
			It("returns an empty, non-nil list", func() {
				apps, err := service.Discover(context.Background(), root)
				Expect(err).NotTo(HaveOccurred())
				Expect(apps).NotTo(BeNil())
				Expect(apps).To(BeEmpty())
			})
		})

		Context("with a broken bundle next to a good one", func() {
			It("omits the broken bundle instead of failing", func() {
				writeBundle(root, "Good.app", "com.example.good", "Good", "1.0")
				Expect(os.MkdirAll(filepath.Join(root, "Broken.app", "Contents"), 0755)).To(Succeed())

				apps, err := service.Discover(context.Background(), root)
				Expect(err).NotTo(HaveOccurred())
				Expect(apps).To(HaveLen(1))
				Expect(apps[0].BundleIdentifier).To(Equal("com.example.good"))
			})
		})
	})

	Describe("wrapped bundles", func() {
		It("derives the name from the wrapper directory", func() {
			outer := filepath.Join(root, "companion.app")
			writeBundle(filepath.Join(outer, "Wrapper"), "Inner.app", "com.example.inner", "Inner Name", "2.0")

			apps, err := service.Discover(context.Background(), root)
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(1))
			Expect(apps[0].IsWrapped).To(BeTrue())
			Expect(apps[0].Name).To(Equal("Companion"))
			Expect(apps[0].BundleIdentifier).To(Equal("com.example.inner"))
		})
	})

	Describe("resolving the same path twice", func() {
		It("yields identical records except for the generated ID", func() {
			writeBundle(root, "Stable.app", "com.example.stable", "Stable", "3.1")

			first, err := service.Discover(context.Background(), root)
			Expect(err).NotTo(HaveOccurred())
			second, err := service.Discover(context.Background(), root)
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(HaveLen(1))
			Expect(second).To(HaveLen(1))
			Expect(first[0].ID).NotTo(Equal(second[0].ID))

			a, b := first[0], second[0]
			a.ID = b.ID
			Expect(a).To(Equal(b))
		})
	})

	Describe("home directory classification", func() {
		It("marks bundles under the home directory as non-global", func() {
			userApps := filepath.Join(home, "Applications")
			writeBundle(userApps, "Mine.app", "com.example.mine", "Mine", "1.0")

			apps, err := service.Discover(context.Background(), userApps)
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(1))
			Expect(apps[0].IsGlobal).To(BeFalse())
		})
	})
})

var _ = Describe("Signing report parsing end to end", func() {
	It("preserves a three-entry authority chain in order", func() {
		report := []byte("Identifier=com.example.x\n" +
			"Authority=Leaf Authority\n" +
			"Authority=Intermediate Authority\n" +
			"Authority=Root Authority\n")

		rec, parsed := infra.ParseSigningReport(report)
		Expect(parsed).To(Equal(4))
		Expect(rec.Authorities).To(Equal([]string{
			"Leaf Authority", "Intermediate Authority", "Root Authority",
		}))
	})

	It("feeds the classifier the parsed chain", func() {
		rec, _ := infra.ParseSigningReport([]byte("Authority=Resigned by HCiSO\n"))
		verdict := usecase.Classify(rec.Authorities, []string{"hciso"})
		Expect(verdict.Status).To(Equal(domain.TrustStatusDangerous))
		Expect(verdict.Flag).To(Equal("hciso"))
	})
})
