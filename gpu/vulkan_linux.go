//go:build linux && cgo

package gpu

/*
#cgo LDFLAGS: -lvulkan -lshaderc_shared

#include <stdint.h>
#include <stdlib.h>
#include <string.h>

#include <vulkan/vulkan.h>
#include <shaderc/shaderc.h>

typedef struct {
	uint32_t max_threads_per_group;
	uint64_t max_buffer_size;
	uint64_t device_local_memory;
	int      unified;
	char     name[256];
} vk_caps;

// One pipeline per kernel; both share a 9-binding descriptor set layout
// (binding 0 uniform config, 1-7 storage, 8 uniform regex header). The glob
// pipeline simply never reads bindings 7 and 8.
typedef struct {
	VkInstance            instance;
	VkPhysicalDevice      phys;
	VkDevice              device;
	VkQueue               queue;
	uint32_t              queue_family;
	VkDescriptorSetLayout set_layout;
	VkPipelineLayout      pipe_layout;
	VkShaderModule        glob_module;
	VkShaderModule        regex_module;
	VkPipeline            glob_pipe;
	VkPipeline            regex_pipe;
	VkCommandPool         cmd_pool;
	VkPhysicalDeviceMemoryProperties mem_props;
} vkctx;

static void vk_set_err(char *err, int errlen, const char *msg) {
	if (err != NULL && errlen > 0) {
		strncpy(err, msg, errlen - 1);
		err[errlen - 1] = 0;
	}
}

// vk_compile_glsl runs shaderc on embedded GLSL source, producing a shader
// module. Returns 0 on success.
static int vk_compile_glsl(VkDevice device, const char *source, const char *name,
                           VkShaderModule *out, char *err, int errlen) {
	shaderc_compiler_t compiler = shaderc_compiler_initialize();
	if (compiler == NULL) {
		vk_set_err(err, errlen, "shaderc init failed");
		return -1;
	}
	shaderc_compilation_result_t result = shaderc_compile_into_spv(
	    compiler, source, strlen(source), shaderc_glsl_compute_shader,
	    name, "main", NULL);
	if (shaderc_result_get_compilation_status(result) !=
	    shaderc_compilation_status_success) {
		vk_set_err(err, errlen, shaderc_result_get_error_message(result));
		shaderc_result_release(result);
		shaderc_compiler_release(compiler);
		return -1;
	}

	VkShaderModuleCreateInfo info = {0};
	info.sType = VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO;
	info.codeSize = shaderc_result_get_length(result);
	info.pCode = (const uint32_t *)shaderc_result_get_bytes(result);
	VkResult rc = vkCreateShaderModule(device, &info, NULL, out);

	shaderc_result_release(result);
	shaderc_compiler_release(compiler);
	if (rc != VK_SUCCESS) {
		vk_set_err(err, errlen, "shader module creation failed");
		return -1;
	}
	return 0;
}

static int vk_init(const char *glob_src, const char *regex_src,
                   void **out_ctx, vk_caps *caps, char *err, int errlen) {
	vkctx *ctx = (vkctx *)calloc(1, sizeof(vkctx));
	if (ctx == NULL) {
		vk_set_err(err, errlen, "out of memory");
		return -1;
	}

	VkApplicationInfo app = {0};
	app.sType = VK_STRUCTURE_TYPE_APPLICATION_INFO;
	app.pApplicationName = "gpufind";
	app.apiVersion = VK_API_VERSION_1_1;

	VkInstanceCreateInfo inst_info = {0};
	inst_info.sType = VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO;
	inst_info.pApplicationInfo = &app;
	if (vkCreateInstance(&inst_info, NULL, &ctx->instance) != VK_SUCCESS) {
		vk_set_err(err, errlen, "no Vulkan loader/ICD");
		free(ctx);
		return -1;
	}

	uint32_t ndev = 0;
	vkEnumeratePhysicalDevices(ctx->instance, &ndev, NULL);
	if (ndev == 0) {
		vk_set_err(err, errlen, "no Vulkan devices");
		vkDestroyInstance(ctx->instance, NULL);
		free(ctx);
		return -1;
	}
	if (ndev > 16) {
		ndev = 16;
	}
	VkPhysicalDevice devices[16];
	vkEnumeratePhysicalDevices(ctx->instance, &ndev, devices);

	// First device with a compute-capable queue family wins.
	ctx->phys = VK_NULL_HANDLE;
	for (uint32_t d = 0; d < ndev && ctx->phys == VK_NULL_HANDLE; d++) {
		uint32_t nfam = 0;
		vkGetPhysicalDeviceQueueFamilyProperties(devices[d], &nfam, NULL);
		if (nfam > 16) {
			nfam = 16;
		}
		VkQueueFamilyProperties fams[16];
		vkGetPhysicalDeviceQueueFamilyProperties(devices[d], &nfam, fams);
		for (uint32_t f = 0; f < nfam; f++) {
			if (fams[f].queueFlags & VK_QUEUE_COMPUTE_BIT) {
				ctx->phys = devices[d];
				ctx->queue_family = f;
				break;
			}
		}
	}
	if (ctx->phys == VK_NULL_HANDLE) {
		vk_set_err(err, errlen, "no compute queue");
		vkDestroyInstance(ctx->instance, NULL);
		free(ctx);
		return -1;
	}

	VkPhysicalDeviceProperties props;
	vkGetPhysicalDeviceProperties(ctx->phys, &props);
	vkGetPhysicalDeviceMemoryProperties(ctx->phys, &ctx->mem_props);

	caps->max_threads_per_group = props.limits.maxComputeWorkGroupInvocations;
	caps->max_buffer_size = props.limits.maxStorageBufferRange;
	caps->device_local_memory = 0;
	int all_host_visible = 1;
	for (uint32_t h = 0; h < ctx->mem_props.memoryHeapCount; h++) {
		if (ctx->mem_props.memoryHeaps[h].flags & VK_MEMORY_HEAP_DEVICE_LOCAL_BIT) {
			caps->device_local_memory += ctx->mem_props.memoryHeaps[h].size;
		}
	}
	for (uint32_t t = 0; t < ctx->mem_props.memoryTypeCount; t++) {
		VkMemoryPropertyFlags fl = ctx->mem_props.memoryTypes[t].propertyFlags;
		if ((fl & VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT) &&
		    !(fl & VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT)) {
			all_host_visible = 0;
		}
	}
	caps->unified = all_host_visible;
	strncpy(caps->name, props.deviceName, sizeof(caps->name) - 1);
	caps->name[sizeof(caps->name) - 1] = 0;

	float prio = 1.0f;
	VkDeviceQueueCreateInfo qinfo = {0};
	qinfo.sType = VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO;
	qinfo.queueFamilyIndex = ctx->queue_family;
	qinfo.queueCount = 1;
	qinfo.pQueuePriorities = &prio;

	VkDeviceCreateInfo dinfo = {0};
	dinfo.sType = VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO;
	dinfo.queueCreateInfoCount = 1;
	dinfo.pQueueCreateInfos = &qinfo;
	if (vkCreateDevice(ctx->phys, &dinfo, NULL, &ctx->device) != VK_SUCCESS) {
		vk_set_err(err, errlen, "device creation failed");
		vkDestroyInstance(ctx->instance, NULL);
		free(ctx);
		return -1;
	}
	vkGetDeviceQueue(ctx->device, ctx->queue_family, 0, &ctx->queue);

	VkDescriptorSetLayoutBinding bindings[9];
	memset(bindings, 0, sizeof(bindings));
	for (int i = 0; i < 9; i++) {
		bindings[i].binding = i;
		bindings[i].descriptorCount = 1;
		bindings[i].stageFlags = VK_SHADER_STAGE_COMPUTE_BIT;
		bindings[i].descriptorType = (i == 0 || i == 8)
		    ? VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER
		    : VK_DESCRIPTOR_TYPE_STORAGE_BUFFER;
	}
	VkDescriptorSetLayoutCreateInfo linfo = {0};
	linfo.sType = VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO;
	linfo.bindingCount = 9;
	linfo.pBindings = bindings;
	if (vkCreateDescriptorSetLayout(ctx->device, &linfo, NULL,
	                                &ctx->set_layout) != VK_SUCCESS) {
		vk_set_err(err, errlen, "descriptor layout creation failed");
		goto fail;
	}

	VkPipelineLayoutCreateInfo plinfo = {0};
	plinfo.sType = VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO;
	plinfo.setLayoutCount = 1;
	plinfo.pSetLayouts = &ctx->set_layout;
	if (vkCreatePipelineLayout(ctx->device, &plinfo, NULL,
	                           &ctx->pipe_layout) != VK_SUCCESS) {
		vk_set_err(err, errlen, "pipeline layout creation failed");
		goto fail;
	}

	if (vk_compile_glsl(ctx->device, glob_src, "match_names.comp",
	                    &ctx->glob_module, err, errlen) != 0 ||
	    vk_compile_glsl(ctx->device, regex_src, "regex_match_names.comp",
	                    &ctx->regex_module, err, errlen) != 0) {
		goto fail;
	}

	VkComputePipelineCreateInfo cpinfo[2];
	memset(cpinfo, 0, sizeof(cpinfo));
	for (int i = 0; i < 2; i++) {
		cpinfo[i].sType = VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO;
		cpinfo[i].stage.sType =
		    VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO;
		cpinfo[i].stage.stage = VK_SHADER_STAGE_COMPUTE_BIT;
		cpinfo[i].stage.pName = "main";
		cpinfo[i].layout = ctx->pipe_layout;
	}
	cpinfo[0].stage.module = ctx->glob_module;
	cpinfo[1].stage.module = ctx->regex_module;
	VkPipeline pipes[2];
	if (vkCreateComputePipelines(ctx->device, VK_NULL_HANDLE, 2, cpinfo,
	                             NULL, pipes) != VK_SUCCESS) {
		vk_set_err(err, errlen, "pipeline creation failed");
		goto fail;
	}
	ctx->glob_pipe = pipes[0];
	ctx->regex_pipe = pipes[1];

	VkCommandPoolCreateInfo cpool = {0};
	cpool.sType = VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO;
	cpool.queueFamilyIndex = ctx->queue_family;
	if (vkCreateCommandPool(ctx->device, &cpool, NULL,
	                        &ctx->cmd_pool) != VK_SUCCESS) {
		vk_set_err(err, errlen, "command pool creation failed");
		goto fail;
	}

	*out_ctx = ctx;
	return 0;

fail:
	if (ctx->glob_pipe) vkDestroyPipeline(ctx->device, ctx->glob_pipe, NULL);
	if (ctx->regex_pipe) vkDestroyPipeline(ctx->device, ctx->regex_pipe, NULL);
	if (ctx->glob_module) vkDestroyShaderModule(ctx->device, ctx->glob_module, NULL);
	if (ctx->regex_module) vkDestroyShaderModule(ctx->device, ctx->regex_module, NULL);
	if (ctx->pipe_layout) vkDestroyPipelineLayout(ctx->device, ctx->pipe_layout, NULL);
	if (ctx->set_layout) vkDestroyDescriptorSetLayout(ctx->device, ctx->set_layout, NULL);
	if (ctx->device) vkDestroyDevice(ctx->device, NULL);
	if (ctx->instance) vkDestroyInstance(ctx->instance, NULL);
	free(ctx);
	return -1;
}

static void vk_destroy(void *p) {
	if (p == NULL) {
		return;
	}
	vkctx *ctx = (vkctx *)p;
	vkDestroyCommandPool(ctx->device, ctx->cmd_pool, NULL);
	vkDestroyPipeline(ctx->device, ctx->glob_pipe, NULL);
	vkDestroyPipeline(ctx->device, ctx->regex_pipe, NULL);
	vkDestroyShaderModule(ctx->device, ctx->glob_module, NULL);
	vkDestroyShaderModule(ctx->device, ctx->regex_module, NULL);
	vkDestroyPipelineLayout(ctx->device, ctx->pipe_layout, NULL);
	vkDestroyDescriptorSetLayout(ctx->device, ctx->set_layout, NULL);
	vkDestroyDevice(ctx->device, NULL);
	vkDestroyInstance(ctx->instance, NULL);
	free(ctx);
}

// vk_buf is one host-visible, host-coherent buffer with bound memory.
typedef struct {
	VkBuffer       buf;
	VkDeviceMemory mem;
} vk_buf;

static int vk_buf_create(vkctx *ctx, VkDeviceSize data_size, VkBufferUsageFlags usage,
                         const void *data, vk_buf *out) {
	// The kernels index byte data through u32 words, so round the buffer up
	// to a word multiple; the tail bytes are zeroed below.
	VkDeviceSize size = (data_size + 3) & ~(VkDeviceSize)3;
	if (size == 0) {
		size = 4; // placeholder for empty uploads
	}

	VkBufferCreateInfo binfo = {0};
	binfo.sType = VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO;
	binfo.size = size;
	binfo.usage = usage;
	binfo.sharingMode = VK_SHARING_MODE_EXCLUSIVE;
	if (vkCreateBuffer(ctx->device, &binfo, NULL, &out->buf) != VK_SUCCESS) {
		return -1;
	}

	VkMemoryRequirements req;
	vkGetBufferMemoryRequirements(ctx->device, out->buf, &req);

	uint32_t type = UINT32_MAX;
	VkMemoryPropertyFlags want = VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT |
	                             VK_MEMORY_PROPERTY_HOST_COHERENT_BIT;
	for (uint32_t t = 0; t < ctx->mem_props.memoryTypeCount; t++) {
		if ((req.memoryTypeBits & (1u << t)) &&
		    (ctx->mem_props.memoryTypes[t].propertyFlags & want) == want) {
			type = t;
			break;
		}
	}
	if (type == UINT32_MAX) {
		vkDestroyBuffer(ctx->device, out->buf, NULL);
		out->buf = VK_NULL_HANDLE;
		return -1;
	}

	VkMemoryAllocateInfo ainfo = {0};
	ainfo.sType = VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO;
	ainfo.allocationSize = req.size;
	ainfo.memoryTypeIndex = type;
	if (vkAllocateMemory(ctx->device, &ainfo, NULL, &out->mem) != VK_SUCCESS ||
	    vkBindBufferMemory(ctx->device, out->buf, out->mem, 0) != VK_SUCCESS) {
		vkDestroyBuffer(ctx->device, out->buf, NULL);
		if (out->mem) {
			vkFreeMemory(ctx->device, out->mem, NULL);
		}
		out->buf = VK_NULL_HANDLE;
		out->mem = VK_NULL_HANDLE;
		return -1;
	}

	void *mapped = NULL;
	if (vkMapMemory(ctx->device, out->mem, 0, VK_WHOLE_SIZE, 0, &mapped) != VK_SUCCESS) {
		return -1;
	}
	memset(mapped, 0, (size_t)size);
	if (data != NULL) {
		memcpy(mapped, data, (size_t)data_size);
	}
	vkUnmapMemory(ctx->device, out->mem);
	return 0;
}

static void vk_buf_destroy(vkctx *ctx, vk_buf *b) {
	if (b->buf) {
		vkDestroyBuffer(ctx->device, b->buf, NULL);
	}
	if (b->mem) {
		vkFreeMemory(ctx->device, b->mem, NULL);
	}
	b->buf = VK_NULL_HANDLE;
	b->mem = VK_NULL_HANDLE;
}

static int vk_dispatch(void *p, int is_regex,
                       const void *config, int config_len,
                       const void *pattern, int pattern_len,
                       const void *names, int names_len,
                       const void *offsets, int offsets_len,
                       const void *lengths, int lengths_len,
                       const void *bitmaps, int bitmaps_len,
                       const void *header, int header_len,
                       uint32_t num_names, uint32_t workgroup,
                       void *results_out, int results_len,
                       uint32_t *count_out,
                       char *err, int errlen) {
	vkctx *ctx = (vkctx *)p;
	int rc = -1;

	// Binding order: config, pattern/states, names, offsets, lengths,
	// results, counter, bitmaps, regex header.
	vk_buf bufs[9];
	memset(bufs, 0, sizeof(bufs));
	VkDescriptorPool pool = VK_NULL_HANDLE;
	VkCommandBuffer cmd = VK_NULL_HANDLE;
	VkFence fence = VK_NULL_HANDLE;

	const VkBufferUsageFlags uniform = VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT;
	const VkBufferUsageFlags storage = VK_BUFFER_USAGE_STORAGE_BUFFER_BIT;

	if (vk_buf_create(ctx, config_len, uniform, config, &bufs[0]) != 0 ||
	    vk_buf_create(ctx, pattern_len, storage, pattern, &bufs[1]) != 0 ||
	    vk_buf_create(ctx, names_len, storage, names, &bufs[2]) != 0 ||
	    vk_buf_create(ctx, offsets_len, storage, offsets, &bufs[3]) != 0 ||
	    vk_buf_create(ctx, lengths_len, storage, lengths, &bufs[4]) != 0 ||
	    vk_buf_create(ctx, results_len, storage, NULL, &bufs[5]) != 0 ||
	    vk_buf_create(ctx, sizeof(uint32_t), storage, NULL, &bufs[6]) != 0 ||
	    vk_buf_create(ctx, bitmaps_len, storage, bitmaps, &bufs[7]) != 0 ||
	    vk_buf_create(ctx, header_len, uniform, header, &bufs[8]) != 0) {
		vk_set_err(err, errlen, "buffer allocation failed");
		goto out;
	}

	{
		VkDescriptorPoolSize sizes[2] = {
			{VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, 2},
			{VK_DESCRIPTOR_TYPE_STORAGE_BUFFER, 7},
		};
		VkDescriptorPoolCreateInfo pinfo = {0};
		pinfo.sType = VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO;
		pinfo.maxSets = 1;
		pinfo.poolSizeCount = 2;
		pinfo.pPoolSizes = sizes;
		if (vkCreateDescriptorPool(ctx->device, &pinfo, NULL, &pool) != VK_SUCCESS) {
			vk_set_err(err, errlen, "descriptor pool creation failed");
			goto out;
		}

		VkDescriptorSetAllocateInfo sinfo = {0};
		sinfo.sType = VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO;
		sinfo.descriptorPool = pool;
		sinfo.descriptorSetCount = 1;
		sinfo.pSetLayouts = &ctx->set_layout;
		VkDescriptorSet set;
		if (vkAllocateDescriptorSets(ctx->device, &sinfo, &set) != VK_SUCCESS) {
			vk_set_err(err, errlen, "descriptor set allocation failed");
			goto out;
		}

		VkDescriptorBufferInfo binfos[9];
		VkWriteDescriptorSet writes[9];
		memset(writes, 0, sizeof(writes));
		for (int i = 0; i < 9; i++) {
			binfos[i].buffer = bufs[i].buf;
			binfos[i].offset = 0;
			binfos[i].range = VK_WHOLE_SIZE;
			writes[i].sType = VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET;
			writes[i].dstSet = set;
			writes[i].dstBinding = i;
			writes[i].descriptorCount = 1;
			writes[i].descriptorType = (i == 0 || i == 8)
			    ? VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER
			    : VK_DESCRIPTOR_TYPE_STORAGE_BUFFER;
			writes[i].pBufferInfo = &binfos[i];
		}
		vkUpdateDescriptorSets(ctx->device, 9, writes, 0, NULL);

		VkCommandBufferAllocateInfo cinfo = {0};
		cinfo.sType = VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO;
		cinfo.commandPool = ctx->cmd_pool;
		cinfo.level = VK_COMMAND_BUFFER_LEVEL_PRIMARY;
		cinfo.commandBufferCount = 1;
		if (vkAllocateCommandBuffers(ctx->device, &cinfo, &cmd) != VK_SUCCESS) {
			vk_set_err(err, errlen, "command buffer allocation failed");
			goto out;
		}

		VkCommandBufferBeginInfo begin = {0};
		begin.sType = VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO;
		begin.flags = VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT;
		vkBeginCommandBuffer(cmd, &begin);
		vkCmdBindPipeline(cmd, VK_PIPELINE_BIND_POINT_COMPUTE,
		                  is_regex ? ctx->regex_pipe : ctx->glob_pipe);
		vkCmdBindDescriptorSets(cmd, VK_PIPELINE_BIND_POINT_COMPUTE,
		                        ctx->pipe_layout, 0, 1, &set, 0, NULL);
		vkCmdDispatch(cmd, (num_names + workgroup - 1) / workgroup, 1, 1);
		vkEndCommandBuffer(cmd);

		VkFenceCreateInfo finfo = {0};
		finfo.sType = VK_STRUCTURE_TYPE_FENCE_CREATE_INFO;
		if (vkCreateFence(ctx->device, &finfo, NULL, &fence) != VK_SUCCESS) {
			vk_set_err(err, errlen, "fence creation failed");
			goto out;
		}

		VkSubmitInfo submit = {0};
		submit.sType = VK_STRUCTURE_TYPE_SUBMIT_INFO;
		submit.commandBufferCount = 1;
		submit.pCommandBuffers = &cmd;
		if (vkQueueSubmit(ctx->queue, 1, &submit, fence) != VK_SUCCESS) {
			vk_set_err(err, errlen, "queue submit failed");
			goto out;
		}
		if (vkWaitForFences(ctx->device, 1, &fence, VK_TRUE,
		                    UINT64_MAX) != VK_SUCCESS) {
			vk_set_err(err, errlen, "fence wait failed");
			goto out;
		}

		void *mapped = NULL;
		if (vkMapMemory(ctx->device, bufs[5].mem, 0, VK_WHOLE_SIZE, 0,
		                &mapped) != VK_SUCCESS) {
			vk_set_err(err, errlen, "results map failed");
			goto out;
		}
		memcpy(results_out, mapped, (size_t)results_len);
		vkUnmapMemory(ctx->device, bufs[5].mem);

		if (vkMapMemory(ctx->device, bufs[6].mem, 0, VK_WHOLE_SIZE, 0,
		                &mapped) != VK_SUCCESS) {
			vk_set_err(err, errlen, "counter map failed");
			goto out;
		}
		memcpy(count_out, mapped, sizeof(uint32_t));
		vkUnmapMemory(ctx->device, bufs[6].mem);

		rc = 0;
	}

out:
	// Scoped release: everything acquired in this dispatch is freed on
	// success and on every error path.
	if (fence) {
		vkDestroyFence(ctx->device, fence, NULL);
	}
	if (cmd) {
		vkFreeCommandBuffers(ctx->device, ctx->cmd_pool, 1, &cmd);
	}
	if (pool) {
		vkDestroyDescriptorPool(ctx->device, pool, NULL);
	}
	for (int i = 0; i < 9; i++) {
		vk_buf_destroy(ctx, &bufs[i]);
	}
	return rc;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/regex"
)

// VulkanDriver dispatches to the first physical device exposing a compute
// queue. Buffers are host-visible and host-coherent; the GLSL kernels are
// compiled to SPIR-V at init through shaderc, so a host without a loader or
// compiler degrades to ErrUnavailable and the selector drops the backend.
type VulkanDriver struct {
	ctx  unsafe.Pointer
	caps DeviceCaps
	log  zerolog.Logger
}

// NewVulkanDriver probes the Vulkan loader, picks a compute-capable device,
// and builds both pipelines.
func NewVulkanDriver(log zerolog.Logger) (Driver, error) {
	globSrc := C.CString(vulkanGlobSource)
	defer C.free(unsafe.Pointer(globSrc))
	regexSrc := C.CString(vulkanRegexSource)
	defer C.free(unsafe.Pointer(regexSrc))

	var (
		ctx    unsafe.Pointer
		ccaps  C.vk_caps
		errBuf [512]C.char
	)
	if C.vk_init(globSrc, regexSrc, &ctx, &ccaps, &errBuf[0], C.int(len(errBuf))) != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, C.GoString(&errBuf[0]))
	}

	caps := DeviceCaps{
		DeviceName:         C.GoString(&ccaps.name[0]),
		MaxThreadsPerGroup: uint32(ccaps.max_threads_per_group),
		MaxBufferSize:      uint64(ccaps.max_buffer_size),
		DeviceLocalMemory:  uint64(ccaps.device_local_memory),
		Unified:            ccaps.unified != 0,
	}
	log.Debug().
		Str("device", caps.DeviceName).
		Uint32("max_threads", caps.MaxThreadsPerGroup).
		Uint64("device_local", caps.DeviceLocalMemory).
		Msg("vulkan driver initialized")

	return &VulkanDriver{ctx: ctx, caps: caps, log: log}, nil
}

// Name implements Driver.
func (*VulkanDriver) Name() string { return "vulkan" }

// Caps implements Driver.
func (d *VulkanDriver) Caps() DeviceCaps { return d.caps }

// Close implements Driver.
func (d *VulkanDriver) Close() error {
	C.vk_destroy(d.ctx)
	d.ctx = nil
	return nil
}

// MatchNames implements Driver.
func (d *VulkanDriver) MatchNames(b *Batch, p *glob.Pattern) (*DispatchResult, error) {
	cfg := newDispatchConfig(b, len(p.Bytes()), p.Options())
	return d.dispatch(false, cfg, p.Bytes(), b, nil, nil)
}

// MatchRegex implements Driver.
func (d *VulkanDriver) MatchRegex(b *Batch, prog *regex.Program) (*DispatchResult, error) {
	cfg := newDispatchConfig(b, len(prog.States)*regex.StateWords*4, 0)
	return d.dispatch(true, cfg, prog.PackBytes(), b,
		prog.BitmapBytes(), prog.Header().HeaderBytes())
}

func (d *VulkanDriver) dispatch(isRegex bool, cfg dispatchConfig, pattern []byte,
	b *Batch, bitmaps, header []byte) (*DispatchResult, error) {
	if b.Len() == 0 {
		return &DispatchResult{}, nil
	}

	cfgBytes := cfg.bytes()
	offsets := u32Bytes(b.Offsets())
	lengths := u32Bytes(b.Lengths())
	results := make([]byte, b.Len()*8)
	var count C.uint32_t

	regexFlag := C.int(0)
	if isRegex {
		regexFlag = 1
	}

	var errBuf [512]C.char
	rc := C.vk_dispatch(d.ctx, regexFlag,
		ptr(cfgBytes), C.int(len(cfgBytes)),
		ptr(pattern), C.int(len(pattern)),
		ptr(b.NamesData()), C.int(len(b.NamesData())),
		ptr(offsets), C.int(len(offsets)),
		ptr(lengths), C.int(len(lengths)),
		ptr(bitmaps), C.int(len(bitmaps)),
		ptr(header), C.int(len(header)),
		C.uint32_t(b.Len()), C.uint32_t(WorkgroupSize),
		ptr(results), C.int(len(results)),
		&count,
		&errBuf[0], C.int(len(errBuf)))
	if rc != 0 {
		return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, C.GoString(&errBuf[0]))
	}

	return &DispatchResult{
		Results: decodeResults(results, b.Len()),
		Count:   uint32(count),
	}, nil
}
