package config

const (
	// Token program identifiers.
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"

	// Whitelist init parameters passed verbatim to the whitelist client.
	WhitelistPhaseCount = 1
	WhitelistBuyLimit   = 10
	WhitelistSizeLimit  = 5

	// Layout relative to the working directory.
	DefaultFixturesDir      = "program/tests/fixtures"
	DefaultProgramSource    = "program/src/lib.rs"
	DefaultProgramManifest  = "program/Cargo.toml"
	DefaultProgramArtifact  = "program/target/deploy/fsp_wl.so"
	DefaultClientManifest   = "cli/Cargo.toml"
	DefaultAuxToolDir       = "blink"
	DefaultManifestFilename = "accounts.yaml"

	// Identity names; files are written as <name>.json.
	ProgramIdentity   = "test-pid"
	PayerIdentity     = "payer"
	WhitelistIdentity = "whitelist"

	// External tools.
	SolanaBinary          = "solana"
	SolanaKeygenBinary    = "solana-keygen"
	SPLTokenBinary        = "spl-token"
	CargoBinary           = "cargo"
	ValidatorBinary       = "solana-test-validator"
	PkillBinary           = "pkill"
	WhitelistClientBinary = "fsp-wl"
	DefaultBuildSubcmd    = "build-bpf"

	// Marker of the program id declaration in the program source.
	DeclareIDMarker = "declare_id!"

	DefaultValidatorImage = "solanalabs/solana:v1.18.26"
	LocalnetRPCURL        = "http://127.0.0.1:8899"
)
