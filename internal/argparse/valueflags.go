package argparse

// valueFlags is the closed set of long/short flags that consume the
// following token as their value. A flag absent from this table is treated
// as a boolean switch. Per spec.md §4.2: any addition of a newly-handled
// long flag MUST also extend this table, because the parser relies on it to
// skip argument tokens — a missed entry misroutes the following token into
// the image/positional slot and silently breaks downstream detection.
var valueFlags = map[string]bool{
	// naming
	"--name": true,
	// publishing
	"-p": true, "--publish": true,
	// labelling
	"-l": true, "--label": true, "--label-file": true,
	// environment
	"-e": true, "--env": true, "--env-file": true,
	// resource limits
	"-c": true, "--cpu-shares": true,
	"-m": true, "--memory": true,
	"--memory-reservation": true, "--memory-swap": true, "--memory-swappiness": true,
	"--kernel-memory": true, "--oom-score-adj": true,
	"--cpus": true, "--cpuset-cpus": true, "--cpuset-mems": true,
	"--cpu-period": true, "--cpu-quota": true, "--cpu-rt-period": true, "--cpu-rt-runtime": true,
	"--blkio-weight": true, "--blkio-weight-device": true,
	"--shm-size": true, "--ulimit": true, "--storage-opt": true,
	"--device-cgroup-rule": true,
	"--device-read-bps":    true, "--device-read-iops": true,
	"--device-write-bps": true, "--device-write-iops": true,
	"--pids-limit": true, "--group-add": true,
	// networking
	"--network": true, "--net": true, "--add-host": true,
	"--dns": true, "--dns-option": true, "--dns-search": true,
	"--domainname": true, "--ip": true, "--ip6": true,
	"--mac-address": true, "--link": true, "--link-local-ip": true,
	"--network-alias": true, "--expose": true,
	// health checks
	"--health-cmd": true, "--health-interval": true, "--health-retries": true,
	"--health-start-period": true, "--health-timeout": true,
	// namespaces
	"--pid": true, "--ipc": true, "--uts": true, "--userns": true, "--cgroupns": true,
	// device tuning / devices
	"--device": true,
	// file-carrying
	"-v": true, "--volume": true, "--mount": true,
	"--cidfile": true, "--volumes-from": true, "--volume-driver": true,
	// security and capabilities
	"--security-opt": true, "--cap-add": true, "--cap-drop": true, "--sysctl": true,
	// buildkit
	"--secret": true, "--ssh": true,
	// build
	"--build-arg": true, "-f": true, "--file": true, "--target": true,
	"--cache-from": true, "--cache-to": true, "--platform": true, "--progress": true,
	"--tmpfs": true,
	// container lifecycle
	"--entrypoint": true, "--restart": true, "--runtime": true,
	"--stop-signal": true, "--stop-timeout": true,
	"--log-driver": true, "--log-opt": true,
	"--hostname": true, "-h": true,
	"--user": true, "-u": true,
	"--workdir": true, "-w": true,
	"--isolation": true, "--gpus": true,
	"--cgroup-parent": true,
}

// isValueFlag reports whether flag (a bare long or short flag token, no
// "=value" suffix) consumes the following argument as its value.
func isValueFlag(flag string) bool {
	return valueFlags[flag]
}

// splitFlagValue splits a "--flag=value" token into its flag and value. ok
// is false when the token carries no inline "=value".
func splitFlagValue(token string) (flag, value string, ok bool) {
	for i := 0; i < len(token); i++ {
		if token[i] == '=' {
			return token[:i], token[i+1:], true
		}
	}
	return token, "", false
}
