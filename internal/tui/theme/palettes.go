package theme

// Reel is the default dark palette (Catppuccin Mocha).
func Reel() *Theme {
	return &Theme{
		Name:   "reel",
		IsDark: true,

		Primary:   "#cba6f7", // Mauve
		Secondary: "#b4befe", // Lavender
		Accent:    "#f9e2af", // Yellow

		BgBase:     "#1e1e2e",
		BgSurface0: "#313244",
		BgSurface1: "#45475a",

		FgMuted:  "#6c7086",
		FgSubtle: "#a6adc8",
		FgBase:   "#cdd6f4",
		FgBright: "#f5e0dc",

		BorderDefault: "#585b70",
		BorderFocused: "#b4befe",

		Success: "#a6e3a1",
		Warning: "#fab387",
		Error:   "#f38ba8",
		Info:    "#89b4fa",
	}
}

// Paper is a light palette (Catppuccin Latte) for bright terminals.
func Paper() *Theme {
	return &Theme{
		Name:   "paper",
		IsDark: false,

		Primary:   "#8839ef",
		Secondary: "#7287fd",
		Accent:    "#df8e1d",

		BgBase:     "#eff1f5",
		BgSurface0: "#ccd0da",
		BgSurface1: "#bcc0cc",

		FgMuted:  "#9ca0b0",
		FgSubtle: "#6c6f85",
		FgBase:   "#4c4f69",
		FgBright: "#1e1e2e",

		BorderDefault: "#acb0be",
		BorderFocused: "#7287fd",

		Success: "#40a02b",
		Warning: "#fe640b",
		Error:   "#d20f39",
		Info:    "#1e66f5",
	}
}
