package wgpu_engine

// All programs live in one WGSL module and share one uniform block,
// one source texture binding, and one mask texture binding. Programs
// that do not sample simply never reference the texture groups, so
// their pipeline layouts can omit them.
const shaderSource = `
struct Uniforms {
	transform: mat4x4<f32>,
	translate: vec2<f32>,
	gradient_func: i32,
	num_stops: i32,
	p: vec2<f32>,
	v: vec2<f32>,
	dimensions: vec2<f32>,
	value: f32,
	_pad0: f32,
	texel_offset: vec2<f32>,
	texcoord_min: vec2<f32>,
	texcoord_max: vec2<f32>,
	_pad1: vec2<f32>,
	color: vec4<f32>,
	weights: vec4<f32>,
	color_matrix: mat4x4<f32>,
	stop_colors: array<vec4<f32>, 16>,
	stop_positions: array<vec4<f32>, 4>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(1) @binding(0) var source_tex: texture_2d<f32>;
@group(1) @binding(1) var source_samp: sampler;
@group(2) @binding(0) var mask_tex: texture_2d<f32>;

struct VertexIn {
	@location(0) pos: vec2<f32>,
	@location(1) color: vec4<f32>,
	@location(2) uv: vec2<f32>,
}

struct VertexOut {
	@builtin(position) position: vec4<f32>,
	@location(0) color: vec4<f32>,
	@location(1) uv: vec2<f32>,
}

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
	var out: VertexOut;
	out.position = uniforms.transform * vec4(in.pos + uniforms.translate, 0.0, 1.0);
	out.color = in.color;
	out.uv = in.uv;
	return out;
}

// Geometry for post-process passes is already in normalized device
// coordinates.
@vertex
fn vs_passthrough(in: VertexIn) -> VertexOut {
	var out: VertexOut;
	out.position = vec4(in.pos, 0.0, 1.0);
	out.color = in.color;
	out.uv = in.uv;
	return out;
}

@fragment
fn fs_color(in: VertexOut) -> @location(0) vec4<f32> {
	return in.color;
}

@fragment
fn fs_texture(in: VertexOut) -> @location(0) vec4<f32> {
	return in.color * textureSample(source_tex, source_samp, in.uv);
}

const PI: f32 = 3.14159265;

fn stop_position(i: u32) -> f32 {
	return uniforms.stop_positions[i / 4u][i % 4u];
}

fn mix_stop_colors(t: f32) -> vec4<f32> {
	var color = uniforms.stop_colors[0];
	for (var i = 1; i < uniforms.num_stops; i++) {
		color = mix(color, uniforms.stop_colors[i], smoothstep(stop_position(u32(i - 1)), stop_position(u32(i)), t));
	}
	return color;
}

// gradient_func values: 0 linear, 1 radial, 2 conic; +3 for the
// repeating variants.
@fragment
fn fs_gradient(in: VertexOut) -> @location(0) vec4<f32> {
	let f = uniforms.gradient_func;
	var t = 0.0;
	if f == 0 || f == 3 {
		let dist_square = dot(uniforms.v, uniforms.v);
		t = dot(uniforms.v, in.uv - uniforms.p) / dist_square;
	} else if f == 1 || f == 4 {
		t = length(uniforms.v * (in.uv - uniforms.p));
	} else {
		let rot = mat2x2<f32>(uniforms.v.x, -uniforms.v.y, uniforms.v.y, uniforms.v.x);
		let d = rot * (in.uv - uniforms.p);
		t = 0.5 + atan2(-d.x, d.y) / (2.0 * PI);
	}
	if f >= 3 {
		let t0 = stop_position(0u);
		let t1 = stop_position(u32(uniforms.num_stops - 1));
		t = t0 + fract((t - t0) / (t1 - t0)) * (t1 - t0);
	}
	return in.color * mix_stop_colors(t);
}

// "Creation" by Danilo Guanabara, of Demoscene fame.
@fragment
fn fs_creation(in: VertexOut) -> @location(0) vec4<f32> {
	let t = uniforms.value;
	let r = uniforms.dimensions;
	var c = vec3(0.0);
	var l = 0.0;
	var z = t;
	for (var i = 0; i < 3; i++) {
		var p = in.uv;
		var uv = p;
		p -= vec2(0.5);
		p.x *= r.x / r.y;
		z += 0.07;
		l = length(p);
		uv += p / l * (sin(z) + 1.0) * abs(sin(l * 9.0 - z - z));
		c[i] = 0.01 / length(fract(uv) - vec2(0.5));
	}
	return vec4(c / l, in.color.a);
}

@fragment
fn fs_passthrough(in: VertexOut) -> @location(0) vec4<f32> {
	return textureSample(source_tex, source_samp, in.uv);
}

// The color matrix operates on unpremultiplied color extended with a
// constant 1, so the matrix's last column acts as an additive term.
@fragment
fn fs_color_matrix(in: VertexOut) -> @location(0) vec4<f32> {
	let tex_color = textureSample(source_tex, source_samp, in.uv);
	let alpha = tex_color.a;
	let unpremul = tex_color.rgb / max(alpha, 0.001);
	let transformed = (uniforms.color_matrix * vec4(unpremul, 1.0)).rgb;
	return vec4(transformed * alpha, alpha);
}

@fragment
fn fs_blend_mask(in: VertexOut) -> @location(0) vec4<f32> {
	let tex_color = textureSample(source_tex, source_samp, in.uv);
	let mask_alpha = textureSample(mask_tex, source_samp, in.uv).a;
	return tex_color * mask_alpha;
}

const BLUR_SIZE: i32 = 7;

@fragment
fn fs_blur(in: VertexOut) -> @location(0) vec4<f32> {
	var sum = vec4(0.0);
	for (var i = 0; i < BLUR_SIZE; i++) {
		let offset = f32(i - BLUR_SIZE / 2) * uniforms.texel_offset;
		let uv = clamp(in.uv + offset, uniforms.texcoord_min, uniforms.texcoord_max);
		sum += uniforms.weights[abs(i - BLUR_SIZE / 2)] * textureSample(source_tex, source_samp, uv);
	}
	return sum;
}

@fragment
fn fs_drop_shadow(in: VertexOut) -> @location(0) vec4<f32> {
	let uv = clamp(in.uv, uniforms.texcoord_min, uniforms.texcoord_max);
	return uniforms.color * textureSample(source_tex, source_samp, uv).a;
}
`

type program uint8

const (
	programColor program = iota
	programTexture
	programGradient
	programCreation
	programPassthrough
	programColorMatrix
	programBlendMask
	programBlur
	programDropShadow

	programCount
)

// bindSlots describes which texture bind groups a program's pipeline
// layout carries beyond the shared uniform group.
type bindSlots uint8

const (
	bindNone    bindSlots = iota // uniforms only
	bindTexture                  // + source texture and sampler
	bindMask                     // + mask texture
)

var programSpecs = [programCount]struct {
	name     string
	vsEntry  string
	fsEntry  string
	bindings bindSlots
}{
	programColor:       {"color", "vs_main", "fs_color", bindNone},
	programTexture:     {"texture", "vs_main", "fs_texture", bindTexture},
	programGradient:    {"gradient", "vs_main", "fs_gradient", bindNone},
	programCreation:    {"creation", "vs_main", "fs_creation", bindNone},
	programPassthrough: {"passthrough", "vs_passthrough", "fs_passthrough", bindTexture},
	programColorMatrix: {"color_matrix", "vs_passthrough", "fs_color_matrix", bindTexture},
	programBlendMask:   {"blend_mask", "vs_passthrough", "fs_blend_mask", bindMask},
	programBlur:        {"blur", "vs_passthrough", "fs_blur", bindTexture},
	programDropShadow:  {"drop_shadow", "vs_passthrough", "fs_drop_shadow", bindTexture},
}

func (p program) String() string {
	return programSpecs[p].name
}
