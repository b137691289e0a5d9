package xref

import "strings"

// Tables holds the lookup data driving inference. Values are never mutated
// after construction; use DefaultTables or build one for tests.
type Tables struct {
	// Predefined maps a document id to the documents it must load after.
	Predefined map[string][]string
	// TypeHints maps the lowercase left half of "Type.object_id" to a document.
	TypeHints map[string]string
	// Prefixes maps lowercase id prefixes ("item_") to a document, checked in order.
	Prefixes []Prefix
	// Markers maps element names whose presence implies a document.
	Markers map[string]string
	// RefAttrs are attribute names whose values are candidate references.
	RefAttrs []string
	// RefElements are element names whose id attribute is a candidate reference.
	RefElements []string
}

type Prefix struct {
	Prefix   string
	Document string
}

var defaultTables = Tables{
	Predefined: map[string][]string{
		"managed_core_parameters":     {"physics_materials"},
		"managed_campaign_parameters": {"managed_core_parameters"},
		"native_parameters":           {"managed_campaign_parameters"},
		"crafting_templates":          {"skills", "item_modifiers_groups"},
		"crafting_pieces":             {"crafting_templates", "item_usage_sets"},
		"items":                       {"crafting_pieces", "item_modifiers", "item_usage_sets"},
		"bone_body_types":             {"skeletons"},
		"faces":                       {"bone_body_types"},
		"characters":                  {"bone_body_types", "faces", "attributes", "skills"},
		"action_types":                {"item_usage_sets", "combat_parameters"},
		"action_sets":                 {"action_types", "animations"},
		"full_movement_sets":          {"action_sets"},
		"movement_sets":               {"full_movement_sets"},
		"item_holsters":               {"items", "skeletons"},
		"equipment_sets":              {"items", "item_modifiers"},
		"mpcharacters":                {"characters", "mpcultures", "mpbadges"},
		"mpitems":                     {"items", "mpclassdivisions"},
		"mpcultures":                  {"cultures"},
		"combat_parameters":           {"physics_materials", "collision_infos"},
		"collision_infos":             {"physics_materials"},
		"particle_systems":            {"physics_materials", "textures"},
		"gpu_particle_systems":        {"particle_systems"},
		"module_sounds":               {"soundfiles"},
		"voice_definitions":           {"module_sounds"},
		"looknfeel":                   {"managed_core_parameters"},
		"map_icons":                   {"map_tree_types", "flora_kinds"},
		"scenes":                      {"map_icons", "atmospheres"},
	},
	TypeHints: map[string]string{
		"item":              "items",
		"character":         "characters",
		"culture":           "cultures",
		"faction":           "factions",
		"clan":              "clans",
		"kingdom":           "kingdoms",
		"skill":             "skills",
		"attribute":         "attributes",
		"trait":             "traits",
		"perk":              "perks",
		"itemmodifier":      "item_modifiers",
		"itemmodifiergroup": "item_modifiers_groups",
		"craftingpiece":     "crafting_pieces",
		"craftingtemplate":  "crafting_templates",
		"itemusage":         "item_usage_sets",
		"equipment":         "equipment_sets",
		"combatparameter":   "combat_parameters",
		"collisioninfo":     "collision_infos",
		"actiontype":        "action_types",
		"actionset":         "action_sets",
		"movementset":       "movement_sets",
		"mesh":              "meshes",
		"texture":           "textures",
		"material":          "materials",
		"particle":          "particle_systems",
		"sound":             "soundfiles",
		"voice":             "voice_definitions",
		"mapicon":           "map_icons",
		"scene":             "scenes",
		"flora":             "flora_kinds",
		"terrain":           "terrain_materials",
		"banner":            "banners",
		"bannericon":        "banner_icons",
		"looknfeel":         "looknfeel",
	},
	Prefixes: []Prefix{
		{"item_", "items"},
		{"char_", "characters"},
		{"cult_", "cultures"},
		{"skill_", "skills"},
		{"attr_", "attributes"},
		{"craft_", "crafting_pieces"},
		{"modifier_", "item_modifiers"},
		{"action_", "action_types"},
		{"combat_", "combat_parameters"},
		{"sound_", "soundfiles"},
		{"mesh_", "meshes"},
		{"texture_", "textures"},
		{"material_", "materials"},
		{"particle_", "particle_systems"},
		{"banner_", "banner_icons"},
		{"map_", "map_icons"},
		{"scene_", "scenes"},
	},
	Markers: map[string]string{
		"CraftingPiece": "crafting_pieces",
		"Item":          "items",
		"Character":     "characters",
		"Culture":       "cultures",
		"Skill":         "skills",
	},
	RefAttrs: []string{
		"ref", "item", "character", "culture", "skill", "template",
		"sound", "mesh", "texture", "material",
	},
	RefElements: []string{"CraftingPiece", "ItemModifier"},
}

// DefaultTables returns a deep copy of the built-in domain tables.
func DefaultTables() Tables {
	return defaultTables.Clone()
}

func (t Tables) Clone() Tables {
	out := Tables{
		Predefined:  make(map[string][]string, len(t.Predefined)),
		TypeHints:   make(map[string]string, len(t.TypeHints)),
		Prefixes:    append([]Prefix(nil), t.Prefixes...),
		Markers:     make(map[string]string, len(t.Markers)),
		RefAttrs:    append([]string(nil), t.RefAttrs...),
		RefElements: append([]string(nil), t.RefElements...),
	}
	for k, v := range t.Predefined {
		out.Predefined[k] = append([]string(nil), v...)
	}
	for k, v := range t.TypeHints {
		out.TypeHints[k] = v
	}
	for k, v := range t.Markers {
		out.Markers[k] = v
	}
	return out
}

// Infer maps one reference value to a document id, or "" when the value
// does not look like a cross-file reference.
func (t Tables) Infer(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if parts := strings.Split(value, "."); len(parts) == 2 {
		if doc, ok := t.TypeHints[strings.ToLower(parts[0])]; ok {
			return doc
		}
		value = parts[1]
	}
	lower := strings.ToLower(value)
	for _, p := range t.Prefixes {
		if strings.HasPrefix(lower, p.Prefix) {
			return p.Document
		}
	}
	return ""
}
