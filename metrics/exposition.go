package metrics

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

var nameReplacer = strings.NewReplacer(".", "_", "-", "_")

// promName turns "executor.call_us" into "<namespace>_executor_call_us".
func promName(namespace, name string) string {
	name = nameReplacer.Replace(name)
	if namespace == "" {
		return name
	}
	return namespace + "_" + name
}

// WriteText writes every metric of r in the Prometheus text format, sorted
// by name. Histograms are exposed as summaries without quantiles; min, max
// and mean follow once a value has been observed.
func WriteText(w io.Writer, r *Registry, namespace string) error {
	bw := bufio.NewWriter(w)
	r.each(func(name string, m any) {
		pn := promName(namespace, name)
		switch m := m.(type) {
		case *Counter:
			header(bw, pn, name, "counter")
			fmt.Fprintf(bw, "%s %d\n", pn, m.Value())
		case *Gauge:
			header(bw, pn, name, "gauge")
			fmt.Fprintf(bw, "%s %d\n", pn, m.Value())
		case *Histogram:
			s := m.Stats()
			header(bw, pn, name, "summary")
			fmt.Fprintf(bw, "%s_count %d\n%s_sum %s\n", pn, s.Count, pn, fmtFloat(s.Sum))
			if s.Count > 0 {
				fmt.Fprintf(bw, "%s_min %s\n%s_max %s\n%s_mean %s\n",
					pn, fmtFloat(s.Min), pn, fmtFloat(s.Max), pn, fmtFloat(s.Mean()))
			}
		case *CounterVec:
			header(bw, pn, name, "counter")
			values := m.Values()
			for _, v := range slices.Sorted(maps.Keys(values)) {
				fmt.Fprintf(bw, "%s{%s=%q} %d\n", pn, m.Label(), v, values[v])
			}
		}
	})
	return bw.Flush()
}

func header(w io.Writer, pn, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", pn, help, pn, kind)
}

// fmtFloat formats v the way Prometheus parses it back.
func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
