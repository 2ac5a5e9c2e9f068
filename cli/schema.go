package cli

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dustwatch/dustwatch/config"
)

// ConfigSchemaAction prints the JSON schema of the configuration file.
func ConfigSchemaAction(c *cli.Context) error {
	schema := jsonschema.Reflect(&config.Config{})
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode config schema")
	}
	printf(c.App.Writer, "%s", raw)
	return nil
}
