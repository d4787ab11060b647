package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/ecofes/lubebot/cmd/lubebot/config"
	"github.com/ecofes/lubebot/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		configDir string
		out       *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := configcmder.NewConfigCmd()
		cmd.PersistentFlags().String("config-dir", configDir, "")
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(newCmd("set", "embedding.provider", "gigachat").Execute()).To(Succeed())

			_, err := os.Stat(filepath.Join(configDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			cfger, err := config.NewConfiger(configDir)
			Expect(err).NotTo(HaveOccurred())
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("gigachat"))
		})

		It("masks secrets in its output", func() {
			Expect(newCmd("set", "generation.api_key", "sk-or-v1-abcdef123456").Execute()).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("sk-or-v1"))
			Expect(out.String()).To(ContainSubstring("3456"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("set", "invalid_key", "value").Execute()).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(newCmd("set", "embedding.provider").Execute()).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			Expect(newCmd("set").Execute()).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			Expect(newCmd("set", "embedding.dimensions", "not-a-number").Execute()).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(newCmd("set", "corpus.root", "/srv/ecofes/docs").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("get", "corpus.root").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("/srv/ecofes/docs"))
		})

		It("shows defaults for unset keys", func() {
			Expect(newCmd("get", "generation.model").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("mistralai/mistral-7b-instruct"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("get", "invalid_key").Execute()).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(newCmd("get").Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(newCmd("list").Execute()).To(Succeed())
			for _, key := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(key))
			}
		})

		It("masks secrets", func() {
			Expect(newCmd("set", "embedding.auth.client_secret", "very-secret-value").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("list").Execute()).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("very-secret"))
			Expect(out.String()).To(ContainSubstring("********alue"))
		})

		It("rejects any arguments", func() {
			Expect(newCmd("list", "extra").Execute()).To(HaveOccurred())
		})
	})
})
