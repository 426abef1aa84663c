package preset

// Builtin returns the presets shipped with inkdash.
func Builtin() *Registry {
	return NewRegistry(
		Preset{Name: "alarm", Values: map[string]any{
			"title":       "ALARM",
			"title_color": "#FFFFFF",
			"text_color":  "#FFFFFF",
			"panel_bg":    "#FF0000",
			"frame":       "thick",
			"frame_color": "#000000",
		}},
		Preset{Name: "warning", Values: map[string]any{
			"title":       "Achtung",
			"title_color": "#000000",
			"text_color":  "#000000",
			"panel_bg":    "#FFFF00",
			"frame":       "thick",
			"frame_color": "#000000",
		}},
		Preset{Name: "info", Values: map[string]any{
			"title":       "Info",
			"title_color": "#0000FF",
			"text_color":  "#000000",
			"panel_bg":    "none",
			"frame":       "thin",
			"frame_color": "#0000FF",
		}},
		Preset{Name: "success", Values: map[string]any{
			"title":       "Erledigt",
			"title_color": "#FFFFFF",
			"text_color":  "#FFFFFF",
			"panel_bg":    "#00A000",
			"frame":       "none",
			"frame_color": "#000000",
		}},
		Preset{Name: "calm", Values: map[string]any{
			"title_color": "#000000",
			"text_color":  "#404040",
			"panel_bg":    "none",
			"frame":       "none",
			"frame_color": "#000000",
		}},
	)
}
