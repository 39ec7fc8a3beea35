package classifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func renderSummary(name string, layers []layerInfo) string {
	rows := make([][]string, len(layers))
	total := 0
	for i, l := range layers {
		rows[i] = []string{fmt.Sprintf("%s (%s)", l.Name, l.Kind), l.Shape, strconv.Itoa(l.Params)}
		total += l.Params
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Layer (type)", "Output Shape", "Param #").
		Rows(rows...)

	var b strings.Builder
	fmt.Fprintf(&b, "Model: %q\n", name)
	b.WriteString(t.String())
	fmt.Fprintf(&b, "\nTotal params: %d\nTrainable params: %d\nNon-trainable params: 0\n", total, total)
	return b.String()
}
