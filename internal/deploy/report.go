package deploy

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

const gib = 1 << 30

func renderSizes(w io.Writer, sizes []godo.Size) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Slug", "Description", "vCPUs", "Memory", "Disk", "$/hour"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, s := range sizes {
		table.Append([]string{
			s.Slug,
			s.Description,
			strconv.Itoa(s.Vcpus),
			humanize.IBytes(uint64(s.Memory) << 20),
			humanize.IBytes(uint64(s.Disk) * gib),
			fmt.Sprintf("%.2f", s.PriceHourly),
		})
	}
	table.Render()
}

func renderNetworks(w io.Writer, networks []domain.NetworkInterface) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "IP", "Address"})
	table.SetBorder(false)
	for _, n := range networks {
		table.Append([]string{strings.ToUpper(n.Type), "v" + strconv.Itoa(n.Version), n.Address})
	}
	table.Render()
}

// describeSnapshot renders id, size, regions and age on one line.
func describeSnapshot(s *domain.SnapshotInfo) string {
	parts := []string{s.ID}
	if s.SizeGigaBytes > 0 {
		parts = append(parts, humanize.IBytes(uint64(s.SizeGigaBytes*gib)))
	}
	if len(s.Regions) > 0 {
		parts = append(parts, "regions "+strings.Join(s.Regions, ","))
	}
	if !s.Created.IsZero() {
		parts = append(parts, "created "+humanize.Time(s.Created))
	}
	return strings.Join(parts, ", ")
}
