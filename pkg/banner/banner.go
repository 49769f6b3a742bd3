package banner

import (
	"fmt"

	"hangartalk/pkg/config"
)

const banner = `
██╗  ██╗ █████╗ ███╗   ██╗ ██████╗  █████╗ ██████╗ ████████╗ █████╗ ██╗     ██╗  ██╗
██║  ██║██╔══██╗████╗  ██║██╔════╝ ██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██║     ██║ ██╔╝
███████║███████║██╔██╗ ██║██║  ███╗███████║██████╔╝   ██║   ███████║██║     █████╔╝ 
██╔══██║██╔══██║██║╚██╗██║██║   ██║██╔══██║██╔══██╗   ██║   ██╔══██║██║     ██╔═██╗ 
██║  ██║██║  ██║██║ ╚████║╚██████╔╝██║  ██║██║  ██║   ██║   ██║  ██║███████╗██║  ██╗
╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═══╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`

// PrintWithEff prints the startup banner using an EffectiveConfigResult
// which provides richer context (config, addr, dbpath, source).
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	var addr = eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	var dbPath = eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	var src = eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/messages' -d '{\"channel\":\"general\",\"content\":\"hello\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/channels/general/messages?threaded=1'")
	fmt.Println("\n== Production? =================================================")
	be := 0
	fe := 0
	ak := 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
		ak = len(eff.Config.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	tlsOK := false
	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		tlsOK = true
	}
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if eff.DBPath != "" {
		fmt.Printf("- DB Path: %s\n", eff.DBPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or HANGARTALK_DB_PATH)")
	}

	if eff.Config != nil {
		fmt.Printf("- Delete policy: %s\n", eff.Config.Community.DeletePolicy)
	}

	swEnabled := false
	swInfo := ""
	if eff.Config != nil {
		swEnabled = eff.Config.Sweeper.Enabled
		if swEnabled {
			if eff.Config.Sweeper.Cron != "" {
				swInfo = "cron=" + eff.Config.Sweeper.Cron
			} else if eff.Config.Sweeper.Period > 0 {
				swInfo = "period=" + eff.Config.Sweeper.Period.Duration().String()
			}
		}
	}
	if swEnabled {
		if swInfo != "" {
			fmt.Printf("- Sweeper: enabled (%s)\n", swInfo)
		} else {
			fmt.Println("- Sweeper: enabled")
		}
	} else {
		fmt.Println("- Sweeper: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
