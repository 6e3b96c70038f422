// Command trajstore records synthetic multi-environment trajectories and
// inspects or exports recorded episodes.
//
//	trajstore config init --path trajstore.toml
//	trajstore record -c trajstore.toml --steps 2000
//	trajstore inspect -c trajstore.toml --env 0
//	trajstore slice -c trajstore.toml --env 0 --episode 3 --format mp4 --out clip.mp4
package main
