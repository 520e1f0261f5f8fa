package config_test

import (
	"os"
	"path/filepath"

	gc "gopkg.in/check.v1"

	"github.com/maestrojobs/maestro/config"
)

var _ = gc.Suite(new(ConfigSuite))

type ConfigSuite struct{}

func (s *ConfigSuite) writeConfig(c *gc.C, contents string) string {
	path := filepath.Join(c.MkDir(), "config.yml")
	c.Assert(os.WriteFile(path, []byte(contents), 0o600), gc.IsNil)
	return path
}

func (s *ConfigSuite) TestLoadFromFile(c *gc.C) {
	path := s.writeConfig(c, `
host: https://mozart.example.com
auth: true
username: ops
secret_id: vault/mozart/ops
`)

	cfg, err := config.Load(path)
	c.Assert(err, gc.IsNil)
	c.Assert(cfg, gc.DeepEquals, &config.Config{
		Host:     "https://mozart.example.com",
		Auth:     true,
		Username: "ops",
		SecretID: "vault/mozart/ops",
	})
}

func (s *ConfigSuite) TestLoadMissingExplicitFile(c *gc.C) {
	_, err := config.Load(filepath.Join(c.MkDir(), "does-not-exist.yml"))
	c.Assert(err, gc.ErrorMatches, "read config: .*")
}

func (s *ConfigSuite) TestLoadMissingHost(c *gc.C) {
	path := s.writeConfig(c, "auth: false\n")
	_, err := config.Load(path)
	c.Assert(err, gc.ErrorMatches, ".*cluster host not configured.*")
}

func (s *ConfigSuite) TestLoadAuthRequiresUsername(c *gc.C) {
	path := s.writeConfig(c, `
host: https://mozart.example.com
auth: true
`)
	_, err := config.Load(path)
	c.Assert(err, gc.ErrorMatches, ".*no username configured.*")
}

func (s *ConfigSuite) TestEnvOverride(c *gc.C) {
	path := s.writeConfig(c, "host: https://mozart.example.com\n")

	c.Assert(os.Setenv("MAESTRO_HOST", "https://standby.example.com"), gc.IsNil)
	defer func() { _ = os.Unsetenv("MAESTRO_HOST") }()

	cfg, err := config.Load(path)
	c.Assert(err, gc.IsNil)
	c.Assert(cfg.Host, gc.Equals, "https://standby.example.com")
}
