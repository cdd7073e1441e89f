// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"codeexec-server/internal/engine"
)

// quantumScripts maps a demonstration keyword to a canned Python script that
// times several implementations of the same task and prints their timings.
// These are deterministic text generators, not open-ended optimisers.
var quantumScripts = map[string]string{
	"sort": `
import time, random
data = [random.random() for _ in range(20000)]

start = time.perf_counter()
a = sorted(data)
t_builtin = time.perf_counter() - start

def bubble(xs):
    xs = xs[:2000]
    n = len(xs)
    for i in range(n):
        for j in range(0, n - i - 1):
            if xs[j] > xs[j + 1]:
                xs[j], xs[j + 1] = xs[j + 1], xs[j]
    return xs

start = time.perf_counter()
b = bubble(data)
t_bubble = time.perf_counter() - start

print(f"builtin_sort_seconds={t_builtin:.6f}")
print(f"bubble_sort_seconds={t_bubble:.6f}")
`,
	"prime": `
import time

def is_prime_naive(n):
    if n < 2:
        return False
    for i in range(2, n):
        if n % i == 0:
            return False
    return True

def is_prime_fast(n):
    if n < 2:
        return False
    if n % 2 == 0:
        return n == 2
    i = 3
    while i * i <= n:
        if n % i == 0:
            return False
        i += 2
    return True

N = 20000
start = time.perf_counter()
naive = sum(1 for n in range(2, N) if is_prime_naive(n))
t_naive = time.perf_counter() - start

start = time.perf_counter()
fast = sum(1 for n in range(2, N) if is_prime_fast(n))
t_fast = time.perf_counter() - start

print(f"naive_seconds={t_naive:.6f} count={naive}")
print(f"fast_seconds={t_fast:.6f} count={fast}")
`,
	"sum_of_squares": `
import time

N = 5_000_000

start = time.perf_counter()
total_loop = 0
for i in range(N):
    total_loop += i * i
t_loop = time.perf_counter() - start

start = time.perf_counter()
total_closed = (N - 1) * N * (2 * N - 1) // 6
t_closed = time.perf_counter() - start

print(f"loop_seconds={t_loop:.6f} total={total_loop}")
print(f"closed_form_seconds={t_closed:.6f} total={total_closed}")
`,
}

// quantumReport is keyed by the /quantum task name, naming the faster
// implementation and a one-line insight.
var quantumReport = map[string]struct {
	winner  string
	insight string
}{
	"sort":           {winner: "builtin Timsort", insight: "Python's builtin sort is a hybrid merge/insertion sort tuned in C; a pure-Python bubble sort loses by orders of magnitude on anything but tiny inputs."},
	"prime":          {winner: "trial division with a sqrt(n) bound and even-number skip", insight: "halving the candidate set and stopping at sqrt(n) turns an O(n) per-check test into roughly O(sqrt(n)/2)."},
	"sum_of_squares": {winner: "the closed-form formula", insight: "n(n+1)(2n+1)/6 replaces an O(n) loop with O(1) arithmetic."},
}

// handleQuantum runs a bundled benchmarking script and formats a fixed
// report layout: the script's raw timing output, then winner and insight.
// No speedup ratio is computed from the timings.
func handleQuantum(ctx context.Context, r *Router, args []string) string {
	if len(args) == 0 {
		return "Error: usage: /quantum <task>"
	}
	task := strings.ToLower(args[0])

	r.incQuantumTestsRun()

	script, ok := quantumScripts[task]
	if !ok {
		return fmt.Sprintf("quantum demonstration: %q is not a bundled benchmark; try one of: sort, prime, sum_of_squares", task)
	}

	result := r.Engine.Execute(ctx, "python", script, "")
	report, ok := quantumReport[task]
	if !ok {
		return result.Output
	}

	if result.Success {
		r.incPerformanceGainsFound()
		r.incBugsPrevented()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Quantum demonstration: %s\n", task)
	b.WriteString(result.Output)
	fmt.Fprintf(&b, "\nWinner: %s\n", report.winner)
	fmt.Fprintf(&b, "Insight: %s\n", report.insight)
	return b.String()
}

// handleQuantumContainer is a documentation stub: multi-container
// orchestration is not implemented, matching the source's own stub.
func handleQuantumContainer(ctx context.Context, r *Router, args []string) string {
	_ = ctx
	task := "unspecified"
	if len(args) > 0 {
		task = args[0]
	}
	return fmt.Sprintf("quantum_container: multi-container orchestration for task %q is not implemented; this command describes what a full implementation would do (spin up one container per candidate implementation, race them, compare wall-clock) rather than performing it.", task)
}

// handleBenchmark wraps the given snippet in a timed loop of iterations
// (default 10; a trailing all-digit token overrides it) and runs it through
// the fallback path.
func handleBenchmark(ctx context.Context, r *Router, args []string) string {
	if len(args) < 2 {
		return "Error: usage: /benchmark <language> <code...> [iterations]"
	}
	language := args[0]
	code, iterations := parseTrailingIterations(args[1:])
	if code == "" {
		return "Error: usage: /benchmark <language> <code...> [iterations]"
	}

	driver := benchmarkDriver(language, code, iterations)
	if driver == "" {
		return fmt.Sprintf("Error: unsupported language %q for /benchmark", language)
	}

	result := r.Engine.Execute(ctx, language, driver, engine.Tier(""))
	return FormatResult(result, language)
}

// benchmarkDriver wraps code in a timed loop for the given language. Returns
// empty string for unsupported languages.
func benchmarkDriver(language, code string, iterations int) string {
	switch language {
	case "python":
		return fmt.Sprintf(`
import time
_start = time.perf_counter()
for _ in range(%d):
%s
_elapsed = time.perf_counter() - _start
print(f"iterations=%d total_seconds={_elapsed:.6f} avg_seconds={_elapsed/%d:.6f}")
`, iterations, indent(code), iterations, iterations)
	case "javascript":
		return fmt.Sprintf(`
const _start = process.hrtime.bigint();
for (let _i = 0; _i < %d; _i++) {
%s
}
const _elapsed = Number(process.hrtime.bigint() - _start) / 1e9;
console.log(`+"`iterations=%d total_seconds=${_elapsed.toFixed(6)} avg_seconds=${(_elapsed/%d).toFixed(6)}`"+`);
`, iterations, code, iterations, iterations)
	case "bash":
		return fmt.Sprintf(`
start=$(date +%%s.%%N)
for i in $(seq 1 %d); do
%s
done
end=$(date +%%s.%%N)
echo "iterations=%d total_seconds=$(echo "$end - $start" | bc)"
`, iterations, code, iterations)
	default:
		return ""
	}
}

func indent(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
