package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// DockerfileName is the recipe filename written into the build context.
const DockerfileName = "Dockerfile.graphdeploy"

// Render produces the two-stage build recipe for a deployment spec.
//
// The deps stage installs a compiler toolchain transiently and pip-installs
// the requirements manifest into an isolated prefix. The runtime stage
// copies the prefix and the application directory, creates the unprivileged
// runtime account, registers the liveness probe, and starts the worker
// manager bound to 0.0.0.0 on the configured port.
func Render(spec domain.DeploymentSpec) string {
	var b strings.Builder

	// Stage 1: dependencies
	fmt.Fprintf(&b, "FROM %s AS deps\n", spec.BaseImage)
	b.WriteString("WORKDIR /build\n")
	b.WriteString("RUN apt-get update \\\n")
	b.WriteString("    && apt-get install -y --no-install-recommends gcc build-essential \\\n")
	b.WriteString("    && rm -rf /var/lib/apt/lists/*\n")
	fmt.Fprintf(&b, "COPY %s ./requirements.txt\n", spec.Requirements)
	b.WriteString("RUN pip install --no-cache-dir --prefix=/install -r requirements.txt\n")
	b.WriteString("\n")

	// Stage 2: runtime
	fmt.Fprintf(&b, "FROM %s\n", spec.BaseImage)
	b.WriteString("WORKDIR /app\n")
	b.WriteString("COPY --from=deps /install /usr/local\n")
	fmt.Fprintf(&b, "COPY %s ./%s\n", spec.AppDir, spec.AppDir)
	for _, k := range envKeys(spec.Env) {
		fmt.Fprintf(&b, "ENV %s=%q\n", k, spec.Env[k])
	}
	fmt.Fprintf(&b, "RUN groupadd -r %s && useradd -r -g %s %s \\\n", spec.RuntimeUser, spec.RuntimeUser, spec.RuntimeUser)
	fmt.Fprintf(&b, "    && chown -R %s:%s /app\n", spec.RuntimeUser, spec.RuntimeUser)
	fmt.Fprintf(&b, "USER %s\n", spec.RuntimeUser)
	fmt.Fprintf(&b, "EXPOSE %d\n", spec.Port)
	fmt.Fprintf(&b, "HEALTHCHECK --interval=%s --timeout=%s --start-period=%s --retries=%d \\\n",
		spec.Health.Interval, spec.Health.Timeout, spec.Health.StartPeriod, spec.Health.Retries)
	fmt.Fprintf(&b, "    CMD %s\n", spec.Health.ProbeCommand(spec.Port))
	fmt.Fprintf(&b, "CMD [\"gunicorn\", %q, \"-k\", \"uvicorn.workers.UvicornWorker\", \"-w\", \"%d\", \"-b\", \"0.0.0.0:%d\"]\n",
		spec.AppModule, spec.Workers, spec.Port)

	return b.String()
}

// envKeys returns the env var names sorted, so renders are reproducible.
func envKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
