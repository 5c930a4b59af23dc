package tools

import "github.com/soyeahso/mcp-digitalocean/internal/mcp"

// Tool names.
const (
	ListRegions    = "list_regions"
	ListSizes      = "list_sizes"
	ListSnapshots  = "list_snapshots"
	GetSnapshot    = "get_snapshot"
	ListDroplets   = "list_droplets"
	GetDroplet     = "get_droplet"
	CreateDroplet  = "create_droplet"
	DeleteDroplet  = "delete_droplet"
	ListSSHKeys    = "list_ssh_keys"
	GetAccount     = "get_account"
	WaitForDroplet = "wait_for_droplet"
)

// ---------- Tool definitions ----------

func definitions() []mcp.Tool {
	return []mcp.Tool{
		// Catalog
		{
			Name:        ListRegions,
			Description: "List all DigitalOcean regions and the sizes available in each",
			InputSchema: mcp.Object(nil),
		},
		{
			Name:        ListSizes,
			Description: "List droplet size plans, optionally only GPU plans",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"gpu_only": mcp.BoolProp("Only return GPU sizes", false),
			}),
		},

		// Snapshots
		{
			Name:        ListSnapshots,
			Description: "List snapshots, optionally filtered by resource type",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"resource_type": mcp.StringEnumProp("Snapshot resource type", "droplet", "volume"),
			}),
		},
		{
			Name:        GetSnapshot,
			Description: "Get a snapshot by ID",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"snapshot_id": mcp.StringProp("Snapshot ID"),
			}, "snapshot_id"),
		},

		// Droplets
		{
			Name:        ListDroplets,
			Description: "List all droplets, optionally filtered by tag",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"tag": mcp.StringProp("Only list droplets with this tag"),
			}),
		},
		{
			Name:        GetDroplet,
			Description: "Get details of a droplet by ID",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"droplet_id": mcp.IntegerProp("Droplet ID"),
			}, "droplet_id"),
		},
		{
			Name:        CreateDroplet,
			Description: "Create a droplet. Returns immediately with status \"new\"; use wait_for_droplet to wait until it is active",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"name":               mcp.StringProp("Droplet name"),
				"region":             mcp.StringProp("Region slug (e.g. nyc1)"),
				"size":               mcp.StringProp("Size slug (e.g. g-2vcpu-16gb)"),
				"image":              mcp.StringProp("Image slug, image ID, or snapshot ID"),
				"ssh_keys":           mcp.StringArrayProp("SSH key IDs or fingerprints"),
				"tags":               mcp.StringArrayProp("Tags to apply"),
				"user_data":          mcp.StringProp("Cloud-init user data"),
				"monitoring":         mcp.BoolProp("Enable the monitoring agent", false),
				"ipv6":               mcp.BoolProp("Enable IPv6", false),
				"private_networking": mcp.BoolProp("Enable private networking", true),
			}, "name", "region", "size", "image"),
		},
		{
			Name:        DeleteDroplet,
			Description: "Delete a droplet by ID",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"droplet_id":       mcp.IntegerProp("Droplet ID"),
				"ignore_not_found": mcp.BoolProp("Treat an already deleted droplet as success", false),
			}, "droplet_id"),
		},
		{
			Name:        WaitForDroplet,
			Description: "Poll a droplet until it is active, has failed, or the timeout passes",
			InputSchema: mcp.Object(map[string]mcp.Property{
				"droplet_id":       mcp.IntegerProp("Droplet ID"),
				"interval_seconds": mcp.NumberProp("Seconds between polls (default 5)"),
				"timeout_seconds":  mcp.NumberProp("Seconds before giving up (default 300)"),
			}, "droplet_id"),
		},

		// Account
		{
			Name:        ListSSHKeys,
			Description: "List SSH keys on the account",
			InputSchema: mcp.Object(nil),
		},
		{
			Name:        GetAccount,
			Description: "Get account information",
			InputSchema: mcp.Object(nil),
		},
	}
}
