package main

import (
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	sfpkg "github.com/sells-group/retreat-leads/pkg/salesforce"
)

// initSalesforce authenticates with the JWT bearer flow using the key at
// salesforce.key_path.
func initSalesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "salesforce auth")
	}

	return sfpkg.NewClient(sf), nil
}
